// Package booking ties validation, storage and availability into the operations the
// HTTP layer exposes.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/validation"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Store persists appointments. Insert must fail with model.ErrSlotTaken when the start
// instant is already held, whoever holds it.
type Store interface {
	Insert(ctx context.Context, appt *model.Appointment) (string, error)
	ExistsAt(ctx context.Context, t time.Time) (bool, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
	FindOwned(ctx context.Context, ownerID, id string) (model.Appointment, error)
	DeleteOwned(ctx context.Context, ownerID, id string, now time.Time) (model.Appointment, error)
	ListUpcoming(ctx context.Context, ownerID string, now time.Time, offset, limit int) ([]model.Appointment, int, error)
}

type Page struct {
	Items      []model.Appointment
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

type Service struct {
	store     Store
	validator *validation.Validator
	resolver  *availability.Resolver
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, logger *slog.Logger, clock func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:     store,
		validator: validation.New(store, logger),
		resolver:  availability.NewResolver(store, logger),
		logger:    logger,
		now:       clock,
	}
}

// Book validates c and stores it for ownerID. Rule failures come back as
// *ValidationError; a slot lost to a concurrent booking also matches ErrConflict.
func (s *Service) Book(ctx context.Context, ownerID string, c validation.Candidate) (model.Appointment, error) {
	now := s.now()
	violations, err := s.validator.Validate(ctx, c, now)
	if err != nil {
		return model.Appointment{}, err
	}
	if len(violations) > 0 {
		return model.Appointment{}, &ValidationError{Violations: violations}
	}

	appt := model.Appointment{
		OwnerID:   ownerID,
		StartsAt:  c.StartsAt.UTC(),
		Name:      strings.TrimSpace(c.Name),
		Email:     strings.TrimSpace(c.Email),
		Phone:     strings.TrimSpace(c.Phone),
		Reason:    strings.TrimSpace(c.Reason),
		CreatedAt: now.UTC(),
	}
	id, err := s.store.Insert(ctx, &appt)
	if err != nil {
		if errors.Is(err, model.ErrSlotTaken) {
			s.logger.Info("slot taken concurrently", "starts_at", appt.StartsAt)
			return model.Appointment{}, conflictError()
		}
		return model.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}
	appt.ID = id
	s.logger.Info("appointment booked", "appointment_id", id, "owner_id", ownerID, "starts_at", appt.StartsAt)
	return appt, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	return s.store.FindOwned(ctx, ownerID, id)
}

// Cancel removes an appointment owned by ownerID, freeing its slot. Appointments of
// other owners are reported as model.ErrNotFound.
func (s *Service) Cancel(ctx context.Context, ownerID, id string) error {
	appt, err := s.store.DeleteOwned(ctx, ownerID, id, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "owner_id", ownerID, "starts_at", appt.StartsAt)
	return nil
}

// Upcoming pages through ownerID's appointments starting at or after now, soonest first.
// Non-positive page or perPage fall back to the defaults.
func (s *Service) Upcoming(ctx context.Context, ownerID string, page, perPage int) (Page, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	items, total, err := s.store.ListUpcoming(ctx, ownerID, s.now(), (page-1)*perPage, perPage)
	if err != nil {
		return Page{}, fmt.Errorf("list upcoming: %w", err)
	}
	return Page{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}, nil
}

func (s *Service) Availability(ctx context.Context, req availability.Request) (availability.Week, error) {
	return s.resolver.Week(ctx, req, s.now())
}

// ParseTimestamp reads a client supplied starts_at. Empty input yields the zero time so
// the validator can report the missing field.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
	}
	return t, nil
}
