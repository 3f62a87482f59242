package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when the backend answers 404.
var ErrNotFound = errors.New("appointments: not found")

// APIError carries a non-2xx backend response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appointments: API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config holds configuration for the backend client.
type Config struct {
	BaseURL    string // e.g. "https://clinic.example.com/api/v1"
	Token      string // optional bearer token
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the clinic REST backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	tracer     trace.Tracer
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("appointments: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("appointments: invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
		tracer:     otel.Tracer("clinic.internal.appointments"),
	}, nil
}

// ListCalendar returns the calendar rows within the requested range.
// GET /appointments/calendar?start=&end=&limit=&offset=&search=
func (c *Client) ListCalendar(ctx context.Context, req ListRequest) ([]CalendarRecord, error) {
	params := url.Values{}
	params.Set("start", req.Start.Format(time.RFC3339))
	params.Set("end", req.End.Format(time.RFC3339))
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		params.Set("offset", strconv.Itoa(req.Offset))
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		params.Set("search", s)
	}

	var raw json.RawMessage
	if err := c.do(ctx, "appointments.list_calendar", http.MethodGet, "/appointments/calendar?"+params.Encode(), nil, &raw); err != nil {
		return nil, err
	}

	var records []CalendarRecord
	if err := decodeList(raw, &records, "appointments", "data"); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode calendar: %w", err)
	}
	return records, nil
}

// Get retrieves the full appointment by id.
// GET /appointments/{id}
func (c *Client) Get(ctx context.Context, id string) (*Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("appointments: id is required")
	}

	var raw json.RawMessage
	if err := c.do(ctx, "appointments.get", http.MethodGet, "/appointments/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// Create posts a new appointment.
// POST /appointments
func (c *Client) Create(ctx context.Context, payload Payload) (*Appointment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "appointments.create", http.MethodPost, "/appointments", envelope{Appointment: payload}, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// Update replaces an appointment.
// PUT /appointments/{id}
func (c *Client) Update(ctx context.Context, id string, payload Payload) (*Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("appointments: id is required")
	}
	var raw json.RawMessage
	if err := c.do(ctx, "appointments.update", http.MethodPut, "/appointments/"+url.PathEscape(id), envelope{Appointment: payload}, &raw); err != nil {
		return nil, err
	}
	return decodeAppointment(raw)
}

// SearchPatients feeds the patient picker.
// GET /patients?q=
func (c *Client) SearchPatients(ctx context.Context, query string) ([]PickerOption, error) {
	params := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("q", q)
	}
	return c.listOptions(ctx, "appointments.search_patients", "/patients", params, "patients")
}

// SearchUsers feeds the doctor/staff picker.
// GET /profile_users?q=&role=
func (c *Client) SearchUsers(ctx context.Context, query, role string) ([]PickerOption, error) {
	params := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("q", q)
	}
	if r := strings.TrimSpace(role); r != "" {
		params.Set("role", r)
	}
	return c.listOptions(ctx, "appointments.search_users", "/profile_users", params, "profile_users", "users")
}

func (c *Client) listOptions(ctx context.Context, op, path string, params url.Values, wrappers ...string) ([]PickerOption, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var options []PickerOption
	if err := decodeList(raw, &options, append(wrappers, "data")...); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode %s: %w", path, err)
	}
	return options, nil
}

type envelope struct {
	Appointment Payload `json:"appointment"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out *json.RawMessage) error {
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	err := c.send(ctx, method, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body any, out *json.RawMessage) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("appointments: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("appointments: failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("appointments: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("appointments: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil {
		*out = append((*out)[:0], data...)
	}
	return nil
}

// decodeList accepts either a bare array or an object wrapping it under one
// of the given keys.
func decodeList(raw json.RawMessage, out any, wrappers ...string) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return errors.New("empty response body")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	for _, key := range wrappers {
		if inner, ok := obj[key]; ok {
			return json.Unmarshal(inner, out)
		}
	}
	return fmt.Errorf("no list found under %v", wrappers)
}

func decodeAppointment(raw json.RawMessage) (*Appointment, error) {
	trimmed := bytes.TrimSpace(raw)
	var wrapped struct {
		Appointment *Appointment `json:"appointment"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Appointment != nil {
		return wrapped.Appointment, nil
	}
	var appt Appointment
	if err := json.Unmarshal(trimmed, &appt); err != nil {
		return nil, fmt.Errorf("appointments: failed to decode appointment: %w", err)
	}
	return &appt, nil
}
