package router

import (
	"net/http"

	"github.com/wolfman30/clinic-calendar/internal/identity"
)

// identifyUser copies the X-User-ID header into the request context.
func identifyUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := identity.FromRequest(r); userID != "" {
			r = r.WithContext(identity.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// requireUserID rejects requests without a user id in context.
func requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing X-User-ID header"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
