package appointments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates appointment types.
type Kind string

const (
	KindConsultation Kind = "consultation"
	KindProcedure    Kind = "procedure"
	KindBlock        Kind = "block"
	KindBudget       Kind = "budget"
)

// RequiresPatient reports whether a patient must be attached to the kind.
func (k Kind) RequiresPatient() bool {
	return k == KindConsultation || k == KindProcedure
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindConsultation, KindProcedure, KindBlock, KindBudget:
		return true
	}
	return false
}

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCanceled  Status = "canceled"
	StatusNoShow    Status = "no_show"
)

// ID is the string form of a backend identifier. The backend emits numeric
// ids, but strings and null are accepted as well.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("appointments: invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	// only canonical integers go out as numbers; "007" or "+5" stay strings
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// IDPtr returns nil for empty ids so optional references serialize as null.
func IDPtr(s string) *ID {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id := ID(s)
	return &id
}

// RepeatOptions describes weekly repetition of a block.
type RepeatOptions struct {
	EndDate string `json:"end_date"`
	Days    []int  `json:"days"`
}

// Appointment is the full backend record used by the edit flow.
type Appointment struct {
	ID                  ID             `json:"id"`
	Kind                Kind           `json:"kind"`
	Status              Status         `json:"status"`
	Title               string         `json:"title,omitempty"`
	StartsAt            time.Time      `json:"starts_at"`
	EndsAt              time.Time      `json:"ends_at"`
	DurationMinutes     int            `json:"duration_minutes"`
	PatientID           *ID            `json:"patient_id"`
	UserID              *ID            `json:"user_id"`
	FacilityItemID      *ID            `json:"facility_item_id"`
	FirstVisit          bool           `json:"first_visit"`
	IsReturn            bool           `json:"is_return"`
	AestheticEvaluation bool           `json:"aesthetic_evaluation"`
	OnlineBooking       bool           `json:"online_booking"`
	OnlineBookingLink   string         `json:"online_booking_link,omitempty"`
	RepeatOptions       *RepeatOptions `json:"repeat_options,omitempty"`
	Notes               string         `json:"notes,omitempty"`
}

// CalendarRecord is the lightweight row returned by the calendar listing.
type CalendarRecord struct {
	ID     ID        `json:"id"`
	Kind   Kind      `json:"kind"`
	Status Status    `json:"status"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Payload is the body sent on create/update, wrapped as {"appointment": ...}.
// RepeatOptions is a pointer so the key is omitted entirely when unset.
type Payload struct {
	Kind                Kind           `json:"kind"`
	Status              Status         `json:"status"`
	StartsAt            time.Time      `json:"starts_at"`
	EndsAt              time.Time      `json:"ends_at"`
	DurationMinutes     int            `json:"duration_minutes"`
	PatientID           *ID            `json:"patient_id"`
	UserID              *ID            `json:"user_id"`
	FacilityItemID      *ID            `json:"facility_item_id"`
	FirstVisit          bool           `json:"first_visit"`
	IsReturn            bool           `json:"is_return"`
	AestheticEvaluation bool           `json:"aesthetic_evaluation"`
	OnlineBooking       bool           `json:"online_booking"`
	OnlineBookingLink   string         `json:"online_booking_link"`
	RepeatOptions       *RepeatOptions `json:"repeat_options,omitempty"`
	Notes               string         `json:"notes"`
}

// ListRequest selects calendar rows within [Start, End].
type ListRequest struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
	Search string
}

// PickerOption is an id/display-name pair for patient and user pickers.
type PickerOption struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

func (p *PickerOption) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       ID     `json:"id"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.Name = firstNonEmpty(raw.Name, raw.FullName, raw.Email)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
