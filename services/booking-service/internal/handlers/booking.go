package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/validation"
)

type BookingHandler struct {
	svc    *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type appointmentInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Reason   string `json:"reason"`
	StartsAt string `json:"starts_at"`
}

// createAppointmentRequest accepts the fields either at the top level or wrapped in
// an "appointment" object.
type createAppointmentRequest struct {
	appointmentInput
	Appointment *appointmentInput `json:"appointment"`
}

type appointmentItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Reason   string `json:"reason"`
	StartsAt string `json:"starts_at"`
}

type listAppointmentsResponse struct {
	Page         int               `json:"page"`
	PerPage      int               `json:"per_page"`
	Total        int               `json:"total"`
	TotalPages   int               `json:"total_pages"`
	Appointments []appointmentItem `json:"appointments"`
}

type slotItem struct {
	StartsAt  string `json:"starts_at"`
	Available bool   `json:"available"`
}

type availableResponse struct {
	Timezone  string     `json:"timezone"`
	WeekStart string     `json:"week_start"`
	Slots     []slotItem `json:"slots"`
}

type validationErrorResponse struct {
	Errors     []string `json:"errors"`
	Violations []string `json:"violations"`
}

func (h *BookingHandler) Available(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	week, err := h.svc.Availability(r.Context(), availability.Request{
		Timezone:  strings.TrimSpace(q.Get("timezone")),
		WeekStart: strings.TrimSpace(q.Get("week_start")),
	})
	if err != nil {
		if errors.Is(err, availability.ErrInvalidWeekStart) {
			httpx.WriteError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
		h.logger.Error("availability failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load availability")
		return
	}

	resp := availableResponse{
		Timezone:  week.Timezone,
		WeekStart: week.Anchor.Format("2006-01-02"),
		Slots:     make([]slotItem, 0, len(week.Slots)),
	}
	for _, s := range week.Slots {
		resp.Slots = append(resp.Slots, slotItem{StartsAt: s.StartsAt.Format(time.RFC3339), Available: s.Available})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.svc.Upcoming(r.Context(), auth.OwnerFromContext(r.Context()), page, perPage)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	resp := listAppointmentsResponse{
		Page:         result.Page,
		PerPage:      result.PerPage,
		Total:        result.Total,
		TotalPages:   result.TotalPages,
		Appointments: make([]appointmentItem, 0, len(result.Items)),
	}
	for _, appt := range result.Items {
		resp.Appointments = append(resp.Appointments, toItem(appt))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	in := req.appointmentInput
	if req.Appointment != nil {
		in = *req.Appointment
	}

	startsAt, err := booking.ParseTimestamp(in.StartsAt)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, booking.ErrInvalidTimestamp.Error())
		return
	}

	appt, err := h.svc.Book(r.Context(), auth.OwnerFromContext(r.Context()), validation.Candidate{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Reason:   in.Reason,
		StartsAt: startsAt,
	})
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
				Errors:     validation.Messages(verr.Violations),
				Violations: validation.Codes(verr.Violations),
			})
			return
		}
		h.logger.Error("create appointment failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toItem(appt))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Get(r.Context(), auth.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err, "load")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toItem(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), auth.OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeLookupError(w, err, "cancel")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Cancelled"})
}

func (h *BookingHandler) writeLookupError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, model.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	h.logger.Error(op+" appointment failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "failed to "+op+" appointment")
}

func toItem(appt model.Appointment) appointmentItem {
	return appointmentItem{
		ID:       appt.ID,
		Name:     appt.Name,
		Email:    appt.Email,
		Phone:    appt.Phone,
		Reason:   appt.Reason,
		StartsAt: appt.StartsAt.UTC().Format(time.RFC3339),
	}
}
