package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/timegrid"
)

var ErrInvalidWeekStart = errors.New("invalid week_start")

// BookedLister returns the start instants of every appointment in [from, to).
type BookedLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

type Request struct {
	Timezone  string
	WeekStart string
}

type Week struct {
	Timezone string
	Anchor   time.Time
	Slots    []model.Slot
}

type Resolver struct {
	booked BookedLister
	logger *slog.Logger
}

func NewResolver(booked BookedLister, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{booked: booked, logger: logger}
}

// Week resolves the display zone and anchor, then marks every remaining slot of the
// window as free or taken. Slots starting before now are dropped.
func (r *Resolver) Week(ctx context.Context, req Request, now time.Time) (Week, error) {
	loc, zerr := timegrid.ResolveZone(req.Timezone)
	if zerr != nil {
		r.logger.Warn("timezone fallback", "timezone", req.Timezone, "err", zerr)
	}

	anchor, err := timegrid.WeekAnchor(req.WeekStart, now, loc)
	if err != nil {
		return Week{}, fmt.Errorf("%w: %v", ErrInvalidWeekStart, err)
	}

	from, to := timegrid.WindowBounds(loc, anchor)
	booked, err := r.booked.ListBetween(ctx, from, to)
	if err != nil {
		return Week{}, fmt.Errorf("list booked slots: %w", err)
	}

	slots := MarkSlots(timegrid.SlotsForWeek(loc, anchor), booked, now)
	for i := range slots {
		slots[i].StartsAt = slots[i].StartsAt.In(loc)
	}
	return Week{Timezone: loc.String(), Anchor: anchor, Slots: slots}, nil
}

// MarkSlots keeps candidates strictly after now that sit on the UTC half-hour grid, in
// order, flagging those that coincide with a booked instant. Zones with a :15 or :45
// offset therefore get no slots, since none of their local starts could be booked.
func MarkSlots(candidates, booked []time.Time, now time.Time) []model.Slot {
	taken := make(map[int64]struct{}, len(booked))
	for _, b := range booked {
		taken[b.UnixNano()] = struct{}{}
	}

	out := make([]model.Slot, 0, len(candidates))
	for _, c := range candidates {
		if !c.After(now) || !timegrid.IsAligned(c) {
			continue
		}
		_, isTaken := taken[c.UnixNano()]
		out = append(out, model.Slot{StartsAt: c, Available: !isTaken})
	}
	return out
}
