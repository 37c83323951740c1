package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
)

const testSecret = "test-secret"

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.NewService(storage.NewMemoryStore(), logger, func() time.Time { return testNow })
	r := chi.NewRouter()
	NewBookingHandler(svc, logger).Routes(r, auth.RequireBearer(testSecret))
	return r
}

func token(t *testing.T, owner string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.NewClaims(owner, owner+"@example.com", time.Now(), time.Hour), testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, owner))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestCreateAndListAppointments(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1",
		`{"appointment":{"name":"Ada","email":"ada@example.com","phone":"555","reason":"checkup","starts_at":"2025-06-16T09:00:00Z"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created appointmentItem
	decode(t, rec, &created)
	if created.ID == "" || created.StartsAt != "2025-06-16T09:00:00Z" || created.Reason != "checkup" {
		t.Fatalf("unexpected body %+v", created)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments?page=0&per_page=-3", "u-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list listAppointmentsResponse
	decode(t, rec, &list)
	if list.Page != 1 || list.PerPage != 10 || list.Total != 1 || list.TotalPages != 1 || len(list.Appointments) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments", "u-2", "")
	decode(t, rec, &list)
	if list.Total != 0 || len(list.Appointments) != 0 {
		t.Fatalf("other owner should see nothing, got %+v", list)
	}
}

func TestCreateRejectsInvalidBooking(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1",
		`{"name":"Ada","email":"ada@example.com","starts_at":"2025-06-14T10:15:00Z"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body validationErrorResponse
	decode(t, rec, &body)
	if len(body.Violations) != 2 || body.Violations[0] != "MisalignedSlot" || body.Violations[1] != "NotWeekday" {
		t.Fatalf("unexpected violations %v", body.Violations)
	}
	if body.Errors[1] != "must be on a weekday" {
		t.Fatalf("unexpected messages %v", body.Errors)
	}
}

func TestCreateReportsMissingFieldsOnce(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1", `{"appointment":{}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var body validationErrorResponse
	decode(t, rec, &body)
	if len(body.Violations) != 1 || body.Violations[0] != "RequiredFieldsMissing" {
		t.Fatalf("expected a single RequiredFieldsMissing, got %v", body.Violations)
	}
	if len(body.Errors) != 3 || body.Errors[0] != "Name can't be blank" || body.Errors[2] != "Starts at can't be blank" {
		t.Fatalf("unexpected messages %v", body.Errors)
	}
}

func TestCreateDoubleBookingAcrossOwners(t *testing.T) {
	h := newTestServer(t)
	body := `{"name":"Ada","email":"ada@example.com","starts_at":"2025-06-16T10:00:00Z"}`
	if rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1", body); rec.Code != http.StatusCreated {
		t.Fatalf("first booking: %d", rec.Code)
	}
	// Same instant expressed with an offset.
	body = `{"name":"Bob","email":"bob@example.com","starts_at":"2025-06-16T12:00:00+02:00"}`
	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-2", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp validationErrorResponse
	decode(t, rec, &resp)
	if len(resp.Errors) != 1 || resp.Errors[0] != "This time slot is already booked" {
		t.Fatalf("unexpected errors %v", resp.Errors)
	}
}

func TestCreateBadInput(t *testing.T) {
	h := newTestServer(t)
	if rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1", `{"name":"Ada","email":"ada@example.com","starts_at":"2025-06-16T09:00:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for timestamp without offset, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/appointments", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "Missing token" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCancelIsOwnerScoped(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/appointments", "u-1",
		`{"name":"Ada","email":"ada@example.com","starts_at":"2025-06-16T11:00:00Z"}`)
	var created appointmentItem
	decode(t, rec, &created)

	rec = do(t, h, http.MethodDelete, "/api/v1/appointments/"+created.ID, "u-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other owner, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "Not found" {
		t.Fatalf("unexpected body %v", body)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/appointments/"+created.ID, "u-1", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/appointments/"+created.ID, "u-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decode(t, rec, &body)
	if body["message"] != "Cancelled" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAvailableIsPublic(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/v1/appointments", "u-1",
		`{"name":"Ada","email":"ada@example.com","starts_at":"2025-06-16T13:00:00Z"}`)

	rec := do(t, h, http.MethodGet, "/api/v1/appointments/available?timezone=America/New_York&week_start=2025-06-16", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body availableResponse
	decode(t, rec, &body)
	if body.Timezone != "America/New_York" || body.WeekStart != "2025-06-16" || len(body.Slots) != 80 {
		t.Fatalf("unexpected response tz=%s week=%s slots=%d", body.Timezone, body.WeekStart, len(body.Slots))
	}
	first := body.Slots[0]
	if first.StartsAt != "2025-06-16T09:00:00-04:00" || first.Available {
		t.Fatalf("expected 09:00 local to be taken, got %+v", first)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments/available?week_start=16-06-2025", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
