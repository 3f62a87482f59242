package viewstate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/wolfman30/clinic-calendar/internal/appointmentform"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

var (
	// ErrNoDialog is returned when a form operation runs with no create/edit
	// dialog open.
	ErrNoDialog = errors.New("viewstate: no appointment dialog open")
	// ErrNotInDayList is returned when selecting a day event outside the day
	// list dialog.
	ErrNotInDayList = errors.New("viewstate: day events dialog not open")
	// ErrTimeSlotClickDisabled is returned for slot clicks in a view whose
	// settings disable them.
	ErrTimeSlotClickDisabled = errors.New("viewstate: time slot click disabled for view")
	// ErrTimeBlockClickDisabled is returned for time-range selections in a
	// view whose settings disable them.
	ErrTimeBlockClickDisabled = errors.New("viewstate: time block click disabled for view")
)

// Notices shown when a flow is aborted.
const (
	NoticeLoadFailed   = "Não foi possível carregar o agendamento."
	NoticeSaveFailed   = "Não foi possível salvar o agendamento."
	NoticeFetchFailed  = "Não foi possível carregar a agenda."
	NoticeSaveComplete = "Agendamento salvo."
)

// EventLister lists the events of a query. *calendar.Fetcher implements it.
type EventLister interface {
	List(ctx context.Context, q calendar.Query) ([]calendar.Event, error)
	Location() *time.Location
}

// AppointmentService is the backend used by the dialog flows.
// *appointments.Client implements it.
type AppointmentService interface {
	Get(ctx context.Context, id string) (*appointments.Appointment, error)
	Create(ctx context.Context, payload appointments.Payload) (*appointments.Appointment, error)
	Update(ctx context.Context, id string, payload appointments.Payload) (*appointments.Appointment, error)
}

// Observer receives controller outcomes; the metrics package implements it.
type Observer interface {
	ObserveStaleResponse(view string)
	ObserveSubmission(mode, status string)
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Store        *Store
	Events       EventLister
	Appointments AppointmentService
	Observer     Observer
	Logger       *logging.Logger
	Now          func() time.Time
}

// Controller runs the asynchronous parts of the calendar: range fetches,
// appointment loads for editing and submissions. All state changes go
// through the Store.
type Controller struct {
	store    *Store
	events   EventLister
	appts    AppointmentService
	observer Observer
	logger   *logging.Logger
	now      func() time.Time

	generation atomic.Uint64
}

// NewController wires a controller.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		store:    cfg.Store,
		events:   cfg.Events,
		appts:    cfg.Appointments,
		observer: cfg.Observer,
		logger:   logger,
		now:      now,
	}
	// restored states carry the generation of their last fetch
	c.generation.Store(cfg.Store.State().Generation)
	return c
}

// Store exposes the underlying store.
func (c *Controller) Store() *Store { return c.store }

// State is shorthand for Store().State().
func (c *Controller) State() State { return c.store.State() }

// Refresh fetches the events of the current (date, view) pair. A newer
// Refresh supersedes this one: its result is then dropped by the reducer and
// the returned state is whatever the store holds.
func (c *Controller) Refresh(ctx context.Context) (State, error) {
	gen := c.generation.Add(1)
	st := c.store.Dispatch(FetchStarted{Generation: gen})
	key := st.QueryKey()

	events, err := c.events.List(ctx, st.Query())
	if err != nil {
		next := c.store.Dispatch(FetchFailed{Generation: gen, Key: key, Error: NoticeFetchFailed})
		if c.stale(next, gen, key) {
			return next, nil
		}
		return next, err
	}
	next := c.store.Dispatch(FetchSucceeded{Generation: gen, Key: key, Events: events})
	c.stale(next, gen, key)
	return next, nil
}

func (c *Controller) stale(st State, gen uint64, key string) bool {
	if st.Generation == gen && st.QueryKey() == key {
		return false
	}
	c.logger.Debug("dropped stale calendar response", "generation", gen, "active_generation", st.Generation, "key", key)
	if c.observer != nil {
		c.observer.ObserveStaleResponse(string(st.CurrentView))
	}
	return true
}

// Navigation changes the visible range. Zero fields keep the current value.
type Navigation struct {
	View      calendar.View
	Date      time.Time
	DaysCount int
}

// Navigate applies nav and refetches.
func (c *Controller) Navigate(ctx context.Context, nav Navigation) (State, error) {
	c.clearNotice()
	if nav.View != "" {
		c.store.Dispatch(SetView{View: nav.View})
	}
	if !nav.Date.IsZero() {
		c.store.Dispatch(SetDate{Date: nav.Date.In(c.events.Location())})
	}
	if nav.DaysCount != 0 {
		c.store.Dispatch(SetDaysCount{DaysCount: nav.DaysCount})
	}
	return c.Refresh(ctx)
}

// ApplyQuery mirrors ?date= and ?view= into the session, refetching when
// they move the visible range.
func (c *Controller) ApplyQuery(ctx context.Context, q url.Values) (State, error) {
	cur := c.store.State()
	next := FromQuery(q, cur)
	if next.QueryKey() == cur.QueryKey() {
		return cur, nil
	}
	return c.Navigate(ctx, Navigation{View: next.CurrentView, Date: next.SelectedDate})
}

// OpenQuickAdd opens the create dialog seeded with data. In timed views a
// slot click (start time only) needs EnableTimeSlotClick and a selected
// range (start and end time) needs EnableTimeBlockClick.
func (c *Controller) OpenQuickAdd(data appointmentform.QuickAdd) (State, error) {
	c.clearNotice()
	st := c.store.State()
	if data.StartTime != "" && st.CurrentView != calendar.ViewMonth && st.CurrentView != calendar.ViewYear {
		settings := st.CurrentSettings()
		if data.EndTime != "" {
			if !settings.EnableTimeBlockClick {
				return st, ErrTimeBlockClickDisabled
			}
		} else if !settings.EnableTimeSlotClick {
			return st, ErrTimeSlotClickDisabled
		}
	}
	return c.store.Dispatch(OpenQuickAdd{Data: data}), nil
}

// OpenEdit loads the appointment and opens the edit dialog. On failure the
// transition is aborted and a notice is set.
func (c *Controller) OpenEdit(ctx context.Context, id string) (State, error) {
	c.clearNotice()
	appt, err := c.appts.Get(ctx, id)
	if err != nil {
		c.logger.Warn("load appointment for edit failed", "appointment_id", id, "error", err)
		return c.store.Dispatch(Notify{Message: NoticeLoadFailed}), fmt.Errorf("viewstate: load appointment %s: %w", id, err)
	}
	return c.store.Dispatch(OpenAppointmentEdit{Appointment: *appt}), nil
}

// ClickDay applies the month/year day-click contract: an empty day opens
// quick add, a day with events opens the day list.
func (c *Controller) ClickDay(date time.Time) (State, calendar.DayClick) {
	c.clearNotice()
	st := c.store.State()
	date = calendar.StartOfDay(date.In(c.events.Location()))
	click := calendar.ClickDay(date, calendar.GroupByDate(st.Events)[calendar.DateKey(date)])
	if click.Action == calendar.OpenQuickAdd {
		return c.store.Dispatch(OpenQuickAdd{Data: appointmentform.QuickAdd{Date: date}}), click
	}
	return c.OpenDayEvents(date, click.Events), click
}

// OpenDayEvents opens the day list dialog with explicit events.
func (c *Controller) OpenDayEvents(date time.Time, events []calendar.Event) State {
	return c.store.Dispatch(OpenDayEvents{Date: date, Events: events})
}

// SelectDayEvent moves from the day list to editing id. The list is closed
// before the edit dialog opens; if the load fails the list stays open.
func (c *Controller) SelectDayEvent(ctx context.Context, id string) (State, error) {
	c.clearNotice()
	if c.store.State().Phase != PhaseDayList {
		return c.store.State(), ErrNotInDayList
	}
	appt, err := c.appts.Get(ctx, id)
	if err != nil {
		c.logger.Warn("load appointment from day list failed", "appointment_id", id, "error", err)
		return c.store.Dispatch(Notify{Message: NoticeLoadFailed}), fmt.Errorf("viewstate: load appointment %s: %w", id, err)
	}
	c.store.Dispatch(CloseDialog{})
	return c.store.Dispatch(OpenAppointmentEdit{Appointment: *appt}), nil
}

// Close closes any open dialog, discarding form state.
func (c *Controller) Close() State {
	c.clearNotice()
	return c.store.Dispatch(CloseDialog{})
}

// FormDefaults derives the initial values of the open dialog.
func (c *Controller) FormDefaults() (appointmentform.Values, error) {
	st := c.store.State()
	in := appointmentform.DefaultsInput{Now: c.now(), Location: c.events.Location()}
	switch st.Phase {
	case PhaseQuickAdd:
		in.Mode = appointmentform.ModeCreate
		in.QuickAdd = st.QuickAddData
	case PhaseEditing:
		in.Mode = appointmentform.ModeEdit
		in.Existing = st.AppointmentToEdit
	default:
		return appointmentform.Values{}, ErrNoDialog
	}
	return appointmentform.Defaults(in), nil
}

// Submit validates and saves the dialog values. Validation and backend
// failures keep the dialog open with the error recorded in state; success
// closes it and refetches the range.
func (c *Controller) Submit(ctx context.Context, values appointmentform.Values) (*appointments.Appointment, State, error) {
	c.clearNotice()
	st := c.store.State()
	if !st.IsQuickAddDialogOpen() {
		return nil, st, ErrNoDialog
	}
	mode := string(st.FormMode)

	payload, err := appointmentform.ToPayload(values, c.events.Location())
	if err != nil {
		var violations appointmentform.Violations
		if errors.As(err, &violations) {
			c.observe(mode, "invalid")
			return nil, c.store.Dispatch(SubmitFailed{Violations: violations}), err
		}
		c.observe(mode, "invalid")
		return nil, c.store.Dispatch(SubmitFailed{Error: err.Error()}), err
	}

	c.store.Dispatch(SubmitStarted{})
	var saved *appointments.Appointment
	if st.Phase == PhaseEditing && st.AppointmentToEdit != nil {
		saved, err = c.appts.Update(ctx, st.AppointmentToEdit.ID.String(), payload)
	} else {
		saved, err = c.appts.Create(ctx, payload)
	}
	if err != nil {
		c.observe(mode, "error")
		c.logger.Warn("appointment submit failed", "mode", mode, "error", err)
		return nil, c.store.Dispatch(SubmitFailed{Error: NoticeSaveFailed}), fmt.Errorf("viewstate: submit appointment: %w", err)
	}

	c.observe(mode, "ok")
	c.store.Dispatch(CloseDialog{})
	c.store.Dispatch(Notify{Message: NoticeSaveComplete})
	next, err := c.Refresh(ctx)
	if err != nil {
		// the save succeeded; the failed refetch is already visible in state
		c.logger.Warn("refetch after submit failed", "error", err)
	}
	return saved, next, nil
}

// clearNotice drops the previous operation's notice; notices last for one
// response.
func (c *Controller) clearNotice() {
	if c.store.State().Notice != "" {
		c.store.Dispatch(ClearNotice{})
	}
}

func (c *Controller) observe(mode, status string) {
	if c.observer != nil {
		c.observer.ObserveSubmission(mode, status)
	}
}
