package appointmentform

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

// consultationLike kinds keep the consultation-only flags.
func consultationLike(k appointments.Kind) bool {
	return k == appointments.KindConsultation
}

// ToPayload maps validated values to the backend payload. EndsAt is derived
// from the start and duration; repeat_options is only set for repeating
// blocks.
func ToPayload(v Values, loc *time.Location) (appointments.Payload, error) {
	if vs := Validate(v); !vs.Valid() {
		return appointments.Payload{}, vs
	}
	start, err := v.StartsAt(loc)
	if err != nil {
		return appointments.Payload{}, err
	}

	p := appointments.Payload{
		Kind:            v.Kind,
		Status:          v.Status,
		StartsAt:        start,
		EndsAt:          start.Add(time.Duration(v.DurationMinutes) * time.Minute),
		DurationMinutes: v.DurationMinutes,
		UserID:          appointments.IDPtr(v.UserID),
		Notes:           strings.TrimSpace(v.Notes),
	}
	if p.Status == "" {
		p.Status = appointments.StatusScheduled
	}
	if v.Kind != appointments.KindBlock {
		p.PatientID = appointments.IDPtr(v.PatientID)
	}
	if v.InformFacility {
		p.FacilityItemID = appointments.IDPtr(v.FacilityItemID)
	}
	if consultationLike(v.Kind) {
		p.FirstVisit = v.FirstVisit
		p.IsReturn = v.IsReturn
		p.AestheticEvaluation = v.AestheticEvaluation
		p.OnlineBooking = v.OnlineBooking
		if v.OnlineBooking {
			p.OnlineBookingLink = strings.TrimSpace(v.OnlineBookingLink)
		}
	}
	if v.Kind == appointments.KindBlock && v.RepeatEnabled {
		days := append([]int(nil), v.RepeatDays...)
		sort.Ints(days)
		p.RepeatOptions = &appointments.RepeatOptions{EndDate: v.RepeatEndDate, Days: dedupe(days)}
	}
	return p, nil
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, d := range sorted {
		if i == 0 || d != sorted[i-1] {
			out = append(out, d)
		}
	}
	return out
}
