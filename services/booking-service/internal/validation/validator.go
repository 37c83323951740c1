// Package validation decides whether a booking request may become an appointment.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/timegrid"
)

// Candidate is a booking request after decoding. A zero StartsAt means the field was
// absent; the offset StartsAt carries selects the zone for the local-time rules.
type Candidate struct {
	Name     string
	Email    string
	Phone    string
	Reason   string
	StartsAt time.Time
}

// SlotLookup reports whether any appointment already starts at t.
type SlotLookup interface {
	ExistsAt(ctx context.Context, t time.Time) (bool, error)
}

type Validator struct {
	slots  SlotLookup
	check  *validator.Validate
	logger *slog.Logger
}

func New(slots SlotLookup, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{slots: slots, check: validator.New(), logger: logger}
}

// Validate runs every rule and returns all violations, ordered by rule. The error is
// non-nil only when the slot lookup itself fails.
func (v *Validator) Validate(ctx context.Context, c Candidate, now time.Time) ([]Violation, error) {
	var out []Violation

	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "Name can't be blank")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "Email can't be blank")
	}
	if c.StartsAt.IsZero() {
		missing = append(missing, "Starts at can't be blank")
	}
	if len(missing) > 0 {
		out = append(out, Violation{
			Rule:    RequiredFieldsMissing,
			Message: strings.Join(missing, ", "),
			Details: missing,
		})
	}

	if email := strings.TrimSpace(c.Email); email != "" {
		if err := v.check.Var(email, "email"); err != nil {
			out = append(out, Violation{Rule: InvalidEmailFormat, Message: "Email is invalid"})
		}
	}

	if c.StartsAt.IsZero() {
		return out, nil
	}

	zone := timegrid.OffsetName(c.StartsAt)
	loc, zerr := timegrid.ResolveZone(zone)
	if zerr != nil {
		v.logger.Warn("timezone fallback", "offset", zone, "err", zerr)
	}
	zoneLabel := loc.String()

	if !timegrid.IsAligned(c.StartsAt) {
		out = append(out, Violation{Rule: MisalignedSlot, Message: "must start on 30-minute boundary"})
	}
	switch {
	case !timegrid.IsWeekday(c.StartsAt, loc):
		out = append(out, Violation{Rule: NotWeekday, Message: "must be on a weekday"})
	case !timegrid.IsWithinBusinessHours(c.StartsAt, loc):
		out = append(out, Violation{
			Rule:    OutsideBusinessHours,
			Message: fmt.Sprintf("must be within 09:00-17:00 (%s)", zoneLabel),
		})
	}
	if !timegrid.IsFuture(c.StartsAt, now) {
		out = append(out, Violation{Rule: PastSlot, Message: "cannot be in the past"})
	}

	taken, err := v.slots.ExistsAt(ctx, c.StartsAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("check slot: %w", err)
	}
	if taken {
		out = append(out, SlotTaken())
	}
	return out, nil
}

// SlotTaken is the violation reported when the start instant is already held.
func SlotTaken() Violation {
	return Violation{Rule: SlotAlreadyBooked, Message: "This time slot is already booked"}
}
