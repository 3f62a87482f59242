package appointmentform

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
)

func id(s string) *appointments.ID {
	v := appointments.ID(s)
	return &v
}

func existingBlock() *appointments.Appointment {
	return &appointments.Appointment{
		ID:              "9",
		Kind:            appointments.KindBlock,
		Status:          appointments.StatusScheduled,
		StartsAt:        time.Date(2024, 3, 4, 13, 30, 0, 0, time.UTC),
		EndsAt:          time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC),
		DurationMinutes: 45,
		UserID:          id("3"),
		FacilityItemID:  id("12"),
		RepeatOptions:   &appointments.RepeatOptions{EndDate: "2024-04-01", Days: []int{1, 3}},
		Notes:           "lunch",
	}
}

func TestDefaults_EditMode(t *testing.T) {
	in := DefaultsInput{Mode: ModeEdit, Existing: existingBlock(), Location: time.UTC}
	v := Defaults(in)

	assert.Equal(t, "2024-03-04", v.Date)
	assert.Equal(t, "13:30", v.StartTime)
	assert.Equal(t, 45, v.DurationMinutes)
	assert.Equal(t, "", v.PatientID)
	assert.Equal(t, "3", v.UserID)
	assert.Equal(t, "12", v.FacilityItemID)
	assert.True(t, v.InformFacility)
	assert.True(t, v.RepeatEnabled)
	assert.Equal(t, "2024-04-01", v.RepeatEndDate)
	assert.Equal(t, []int{1, 3}, v.RepeatDays)
}

func TestDefaults_EditModeIsIdempotent(t *testing.T) {
	in := DefaultsInput{Mode: ModeEdit, Existing: existingBlock(), Location: time.UTC, Now: time.Now()}
	first := Defaults(in)
	second := Defaults(in)
	assert.Equal(t, first, second)

	// mutating the output must not leak into the input appointment
	first.RepeatDays[0] = 6
	assert.Equal(t, []int{1, 3}, in.Existing.RepeatOptions.Days)
}

func TestDefaults_QuickAddWithTimeBlock(t *testing.T) {
	qa := &QuickAdd{Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "11:15"}
	v := Defaults(DefaultsInput{Mode: ModeCreate, QuickAdd: qa, Location: time.UTC, Now: time.Date(2024, 3, 1, 8, 47, 0, 0, time.UTC)})

	assert.Equal(t, "2024-03-06", v.Date)
	assert.Equal(t, "10:00", v.StartTime)
	assert.Equal(t, 75, v.DurationMinutes)
	assert.Equal(t, appointments.KindConsultation, v.Kind)
	assert.Equal(t, appointments.StatusScheduled, v.Status)
}

func TestDefaults_QuickAddNonPositiveDeltaFallsBack(t *testing.T) {
	qa := &QuickAdd{Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "09:00"}
	v := Defaults(DefaultsInput{Mode: ModeCreate, QuickAdd: qa, Location: time.UTC})
	assert.Equal(t, DefaultDurationMinutes, v.DurationMinutes)
}

func TestDefaults_DateOnlyRoundsClockDown(t *testing.T) {
	qa := &QuickAdd{Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)}
	now := time.Date(2024, 3, 1, 8, 47, 12, 0, time.UTC)
	v := Defaults(DefaultsInput{Mode: ModeCreate, QuickAdd: qa, Location: time.UTC, Now: now})
	assert.Equal(t, "2024-03-06", v.Date)
	assert.Equal(t, "08:30", v.StartTime)
	assert.Equal(t, DefaultDurationMinutes, v.DurationMinutes)

	v = Defaults(DefaultsInput{Mode: ModeCreate, Location: time.UTC, Now: time.Date(2024, 3, 1, 9, 29, 0, 0, time.UTC)})
	assert.Equal(t, "2024-03-01", v.Date)
	assert.Equal(t, "09:00", v.StartTime)
}

func TestValidate(t *testing.T) {
	valid := Values{Kind: appointments.KindConsultation, PatientID: "1", UserID: "2", Date: "2024-03-06", StartTime: "10:00", DurationMinutes: 30}
	assert.True(t, Validate(valid).Valid())

	tests := []struct {
		name   string
		mutate func(*Values)
		field  string
	}{
		{"patient for consultation", func(v *Values) { v.PatientID = "" }, "patientId"},
		{"patient for procedure", func(v *Values) { v.Kind = appointments.KindProcedure; v.PatientID = " " }, "patientId"},
		{"user always", func(v *Values) { v.UserID = "" }, "userId"},
		{"facility when informed", func(v *Values) { v.InformFacility = true }, "facilityItemId"},
		{"positive duration", func(v *Values) { v.DurationMinutes = 0 }, "durationMinutes"},
		{"start time format", func(v *Values) { v.StartTime = "25:00" }, "startTime"},
		{"repeat end date", func(v *Values) {
			v.Kind = appointments.KindBlock
			v.RepeatEnabled = true
			v.RepeatDays = []int{1}
		}, "repeatEndDate"},
		{"repeat days", func(v *Values) {
			v.Kind = appointments.KindBlock
			v.RepeatEnabled = true
			v.RepeatEndDate = "2024-04-01"
		}, "repeatDays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)
			vs := Validate(v)
			require.False(t, vs.Valid())
			assert.Contains(t, vs.Fields(), tt.field)
			assert.NotEmpty(t, vs.Summary())
		})
	}

	block := Values{Kind: appointments.KindBlock, UserID: "2", Date: "2024-03-06", StartTime: "12:00", DurationMinutes: 60}
	assert.True(t, Validate(block).Valid(), "blocks need no patient")
}

func TestValidate_SummaryFollowsFieldOrder(t *testing.T) {
	vs := Validate(Values{Kind: appointments.KindConsultation, Date: "x", StartTime: "10:00"})
	fields := make([]string, 0, len(vs))
	for _, v := range vs {
		fields = append(fields, v.Field)
	}
	assert.Equal(t, []string{"patientId", "userId", "date", "durationMinutes"}, fields)
}

func TestToPayload_BlockWithoutRepeatOmitsKey(t *testing.T) {
	v := Values{
		Kind: appointments.KindBlock, UserID: "2", PatientID: "7", Date: "2024-03-06", StartTime: "12:00",
		DurationMinutes: 60, RepeatEnabled: false, RepeatEndDate: "2024-04-01", RepeatDays: []int{1},
		FirstVisit: true,
	}
	p, err := ToPayload(v, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, p.RepeatOptions)
	assert.Nil(t, p.PatientID)
	assert.False(t, p.FirstVisit)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	_, present := raw["repeat_options"]
	assert.False(t, present, "repeat_options must be absent, got %s", string(data))
	assert.Nil(t, raw["patient_id"])
}

func TestToPayload_RepeatingBlock(t *testing.T) {
	v := Values{
		Kind: appointments.KindBlock, UserID: "2", Date: "2024-03-06", StartTime: "12:00", DurationMinutes: 60,
		RepeatEnabled: true, RepeatEndDate: "2024-04-01", RepeatDays: []int{3, 1, 3},
	}
	p, err := ToPayload(v, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, p.RepeatOptions)
	assert.Equal(t, []int{1, 3}, p.RepeatOptions.Days)
	assert.Equal(t, "2024-04-01", p.RepeatOptions.EndDate)
}

func TestToPayload_ConsultationMapping(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	v := Values{
		Kind: appointments.KindConsultation, Status: appointments.StatusConfirmed, PatientID: "7", UserID: "2",
		Date: "2024-03-06", StartTime: "23:30", DurationMinutes: 45, FirstVisit: true, AestheticEvaluation: true,
		InformFacility: false, FacilityItemID: "99",
	}
	p, err := ToPayload(v, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 7, 2, 30, 0, 0, time.UTC), p.StartsAt.UTC())
	assert.Equal(t, time.Date(2024, 3, 7, 3, 15, 0, 0, time.UTC), p.EndsAt.UTC())
	assert.Equal(t, 45, p.DurationMinutes)
	require.NotNil(t, p.PatientID)
	assert.Equal(t, appointments.ID("7"), *p.PatientID)
	assert.Nil(t, p.FacilityItemID)
	assert.True(t, p.FirstVisit)
	assert.True(t, p.AestheticEvaluation)
}

func TestToPayload_ProcedureZeroesConsultationFlags(t *testing.T) {
	v := Values{
		Kind: appointments.KindProcedure, PatientID: "7", UserID: "2", Date: "2024-03-06", StartTime: "10:00",
		DurationMinutes: 30, FirstVisit: true, IsReturn: true, OnlineBooking: true, OnlineBookingLink: "https://x",
	}
	p, err := ToPayload(v, time.UTC)
	require.NoError(t, err)
	assert.False(t, p.FirstVisit)
	assert.False(t, p.IsReturn)
	assert.False(t, p.OnlineBooking)
	assert.Empty(t, p.OnlineBookingLink)
	assert.Equal(t, appointments.StatusScheduled, p.Status)
}

func TestToPayload_InvalidReturnsViolations(t *testing.T) {
	_, err := ToPayload(Values{Kind: appointments.KindConsultation}, time.UTC)
	var vs Violations
	require.True(t, errors.As(err, &vs))
	assert.Contains(t, vs.Fields(), "patientId")
}

func TestStartDurationEndStayConsistent(t *testing.T) {
	v := Values{Date: "2024-03-06", StartTime: "10:00", DurationMinutes: 30}
	assert.Equal(t, "10:30", v.EndTime())

	moved := v.WithStartTime("11:00")
	assert.Equal(t, 30, moved.DurationMinutes)
	assert.Equal(t, "11:30", moved.EndTime())

	longer := moved.WithEndTime("12:15")
	assert.Equal(t, 75, longer.DurationMinutes)
	assert.Equal(t, "12:15", longer.EndTime())

	shorter := longer.WithDuration(15)
	end, err := shorter.EndsAt(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 11, 15, 0, 0, time.UTC), end)
}

func TestRepeatPreview(t *testing.T) {
	v := Values{
		Kind: appointments.KindBlock, UserID: "2", Date: "2024-03-04", StartTime: "12:00", DurationMinutes: 60,
		RepeatEnabled: true, RepeatEndDate: "2024-03-13", RepeatDays: []int{1, 3},
	}
	got, err := RepeatPreview(v, time.UTC, 0)
	require.NoError(t, err)
	want := []time.Time{
		time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC),
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "occurrence %d: got %s", i, got[i])
	}

	capped, err := RepeatPreview(v, time.UTC, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	v.RepeatEnabled = false
	none, err := RepeatPreview(v, time.UTC, 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}
