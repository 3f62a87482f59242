// Package identity carries the caller's user id. Authentication happens
// upstream; the gateway forwards the authenticated id in Header.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// Header is the request header holding the caller's user id.
const Header = "X-User-ID"

type ctxKey string

const userKey ctxKey = "calendar.user_id"

// WithUserID stores the user id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserIDFromContext extracts the user id if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(userKey)
	if val == nil {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok && userID != ""
}

// FromRequest reads the trimmed Header value.
func FromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}
