package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newHandlerFixture(appts ...*Appointment) (*Handler, *echo.Echo, *mockApptRepo) {
	repo := newMockApptRepo(appts...)
	h := NewHandler(EngineDeps{
		Appointments: repo,
		Settings:     defaultSettings(),
		Roster:       &mockRoster{},
		Changes:      &mockRecorder{},
		Logger:       zerolog.Nop(),
		Geometry:     Geometry{SlotHeight: 40},
	})
	return h, echo.New(), repo
}

// dayQuery is the clinic and date every fixture request targets.
var dayQuery = "clinic_id=" + testClinicID.String() + "&date=2026-01-26"

// commitErrorBody unwraps the echo error a commit handler returns and yields
// its HTTP status plus the code/message/window payload.
func commitErrorBody(t *testing.T, err error) (int, map[string]string) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	body, ok := he.Message.(map[string]string)
	if !ok {
		t.Fatalf("expected map payload, got %T", he.Message)
	}
	return he.Code, body
}

func TestHandler_DayView(t *testing.T) {
	h, e, _ := newHandlerFixture(clinicAppt("10:00", "10:30"))
	req := httptest.NewRequest(http.MethodGet, "/?"+dayQuery, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DayView(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view DayView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode day view: %v", err)
	}
	if view.Date != "2026-01-26" {
		t.Errorf("date = %s, want 2026-01-26", view.Date)
	}
	// 09:00 to 18:00 at 15 minutes: 36 quarter slots plus the bare 18:00.
	if len(view.Slots) != 37 {
		t.Errorf("slot count = %d, want 37", len(view.Slots))
	}
	if view.SlotMinutes != 15 {
		t.Errorf("slot minutes = %d, want 15", view.SlotMinutes)
	}
}

func TestHandler_DayView_InvalidClinicID(t *testing.T) {
	h, e, _ := newHandlerFixture()
	req := httptest.NewRequest(http.MethodGet, "/?clinic_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.DayView(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_DayView_InvalidDate(t *testing.T) {
	h, e, _ := newHandlerFixture()
	req := httptest.NewRequest(http.MethodGet, "/?clinic_id="+testClinicID.String()+"&date=26-01-2026", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.DayView(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_MoveAppointment(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	h, e, repo := newHandlerFixture(a)
	body := `{"start_time":"15:00"}`
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.MoveAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if stored := repo.get(t, a.ID); stored.Start != "15:00" || stored.End != "15:30" {
		t.Errorf("stored window = %s-%s, want 15:00-15:30", stored.Start, stored.End)
	}
}

func TestHandler_MoveAppointment_Conflict(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	b := clinicAppt("14:30", "15:00")
	h, e, repo := newHandlerFixture(a, b)
	body := `{"start_time":"14:15"}`
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	err := h.MoveAppointment(c)
	if err == nil {
		t.Fatal("expected a conflict error")
	}
	code, payload := commitErrorBody(t, err)
	if code != http.StatusConflict {
		t.Errorf("status = %d, want 409", code)
	}
	if payload["code"] != "conflict" {
		t.Errorf(`code = %q, want "conflict"`, payload["code"])
	}
	if payload["window"] != "14:30-15:00" {
		t.Errorf("window = %q, want the blocking appointment's window", payload["window"])
	}
	if stored := repo.get(t, a.ID); stored.Start != "14:00" {
		t.Error("rejected move mutated the store")
	}
}

func TestHandler_MoveAppointment_NeedsConfirmation(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	h, e, repo := newHandlerFixture(a)

	// Unconfirmed move into the 12:00-13:00 lunch break.
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(`{"start_time":"12:00"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	err := h.MoveAppointment(c)
	if err == nil {
		t.Fatal("expected a confirmation error")
	}
	code, payload := commitErrorBody(t, err)
	if code != http.StatusConflict {
		t.Errorf("status = %d, want 409", code)
	}
	if payload["code"] != "needs_confirmation" {
		t.Errorf(`code = %q, want "needs_confirmation"`, payload["code"])
	}

	// The same move goes through with the confirmed flag.
	req = httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(`{"start_time":"12:00","confirmed":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.MoveAppointment(c); err != nil {
		t.Fatalf("confirmed move: %v", err)
	}
	if stored := repo.get(t, a.ID); stored.Start != "12:00" {
		t.Errorf("stored start = %s, want 12:00", stored.Start)
	}
}

func TestHandler_MoveAppointment_NotSlotAligned(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	h, e, _ := newHandlerFixture(a)
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(`{"start_time":"14:07"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	err := h.MoveAppointment(c)
	if err == nil {
		t.Fatal("expected an alignment error")
	}
	code, payload := commitErrorBody(t, err)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", code)
	}
	if payload["code"] != "not_slot_aligned" {
		t.Errorf(`code = %q, want "not_slot_aligned"`, payload["code"])
	}
}

func TestHandler_MoveAppointment_InvalidID(t *testing.T) {
	h, e, _ := newHandlerFixture()
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(`{"start_time":"14:00"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.MoveAppointment(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_CreateAppointment(t *testing.T) {
	h, e, repo := newHandlerFixture()
	body := `{"patient_id":"` + uuid.New().String() + `","start_time":"09:00","end_time":"09:45"}`
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created appointment: %v", err)
	}
	if stored := repo.get(t, created.ID); stored.Start != "09:00" || stored.End != "09:45" {
		t.Errorf("stored window = %s-%s, want 09:00-09:45", stored.Start, stored.End)
	}
}

func TestHandler_ResizeAppointment(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	h, e, repo := newHandlerFixture(a)
	req := httptest.NewRequest(http.MethodPost, "/?"+dayQuery, strings.NewReader(`{"end_time":"15:00"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.ResizeAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if stored := repo.get(t, a.ID); stored.Start != "14:00" || stored.End != "15:00" {
		t.Errorf("stored window = %s-%s, want 14:00-15:00", stored.Start, stored.End)
	}
}
