package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

type stubPickers struct {
	patients []appointments.PickerOption
	err      error
	query    string
	role     string
}

func (s *stubPickers) SearchPatients(_ context.Context, q string) ([]appointments.PickerOption, error) {
	s.query = q
	return s.patients, s.err
}

func (s *stubPickers) SearchUsers(_ context.Context, q, role string) ([]appointments.PickerOption, error) {
	s.query, s.role = q, role
	return nil, s.err
}

func TestPickerHandler(t *testing.T) {
	src := &stubPickers{patients: []appointments.PickerOption{{ID: "5", Name: "Maria Souza"}}}
	router := NewPickerHandler(src, logging.NewWithWriter("error", &bytes.Buffer{})).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients?q=+mar+", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mar", src.query)
	assert.JSONEq(t, `{"options":[{"id":5,"name":"Maria Souza"}]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users?q=ana&role=doctor", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doctor", src.role)
	assert.JSONEq(t, `{"options":[]}`, rec.Body.String())
}

func TestPickerHandler_BackendFailure(t *testing.T) {
	src := &stubPickers{err: errors.New("timeout")}
	router := NewPickerHandler(src, logging.NewWithWriter("error", &bytes.Buffer{})).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp pickerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Options)
	assert.NotEmpty(t, resp.Error)
}
