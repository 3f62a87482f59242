package appointmentform

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations is the outcome of Validate; empty means valid.
type Violations []Violation

// Valid reports whether there are no violations.
func (vs Violations) Valid() bool { return len(vs) == 0 }

// Fields maps each field to its first message.
func (vs Violations) Fields() map[string]string {
	out := make(map[string]string, len(vs))
	for _, v := range vs {
		if _, ok := out[v.Field]; !ok {
			out[v.Field] = v.Message
		}
	}
	return out
}

// Summary lists the messages in field order for the aggregated error list.
func (vs Violations) Summary() []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Message)
	}
	return out
}

func (vs Violations) Error() string {
	return "appointmentform: " + strings.Join(vs.Summary(), "; ")
}

// Validate applies the dialog rules to v.
func Validate(v Values) Violations {
	var out Violations
	add := func(field, msg string) { out = append(out, Violation{Field: field, Message: msg}) }

	if !v.Kind.Valid() {
		add("kind", "kind must be consultation, procedure, block or budget")
	}
	if v.Kind.RequiresPatient() && strings.TrimSpace(v.PatientID) == "" {
		add("patientId", "patient is required for consultations and procedures")
	}
	if strings.TrimSpace(v.UserID) == "" {
		add("userId", "professional is required")
	}
	if v.InformFacility && strings.TrimSpace(v.FacilityItemID) == "" {
		add("facilityItemId", "facility is required when informing a facility")
	}
	if _, err := time.Parse(dateLayout, v.Date); err != nil {
		add("date", "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(clockLayout, v.StartTime); err != nil {
		add("startTime", "start time must be HH:mm")
	}
	if v.DurationMinutes <= 0 {
		add("durationMinutes", "duration must be a positive number of minutes")
	}
	if v.Kind == appointments.KindBlock && v.RepeatEnabled {
		if strings.TrimSpace(v.RepeatEndDate) == "" {
			add("repeatEndDate", "repeat end date is required")
		} else if end, err := time.Parse(dateLayout, v.RepeatEndDate); err != nil {
			add("repeatEndDate", "repeat end date must be YYYY-MM-DD")
		} else if start, err := time.Parse(dateLayout, v.Date); err == nil && end.Before(start) {
			add("repeatEndDate", "repeat end date must not be before the start date")
		}
		if len(v.RepeatDays) == 0 {
			add("repeatDays", "select at least one weekday to repeat on")
		}
		for _, d := range v.RepeatDays {
			if d < 0 || d > 6 {
				add("repeatDays", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return fieldOrder(out[i].Field) < fieldOrder(out[j].Field) })
	return out
}

var fieldPositions = []string{
	"kind", "patientId", "userId", "facilityItemId", "date", "startTime",
	"durationMinutes", "repeatEndDate", "repeatDays",
}

func fieldOrder(field string) int {
	for i, f := range fieldPositions {
		if f == field {
			return i
		}
	}
	return len(fieldPositions)
}
