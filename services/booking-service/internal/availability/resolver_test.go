package availability

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

type fakeBooked struct {
	starts   []time.Time
	err      error
	from, to time.Time
	calls    int
}

func (f *fakeBooked) ListBetween(_ context.Context, from, to time.Time) ([]time.Time, error) {
	f.calls++
	f.from, f.to = from, to
	return f.starts, f.err
}

func TestWeekMarksBookedSlots(t *testing.T) {
	booked := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	store := &fakeBooked{starts: []time.Time{booked}}
	r := NewResolver(store, nil)

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	week, err := r.Week(context.Background(), Request{WeekStart: "2025-06-16"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.Timezone != "UTC" {
		t.Fatalf("expected UTC, got %s", week.Timezone)
	}
	if len(week.Slots) != 80 {
		t.Fatalf("expected 80 slots, got %d", len(week.Slots))
	}
	taken := 0
	for _, s := range week.Slots {
		if !s.Available {
			taken++
			if !s.StartsAt.Equal(booked) {
				t.Fatalf("unexpected taken slot %s", s.StartsAt)
			}
		}
	}
	if taken != 1 {
		t.Fatalf("expected 1 taken slot, got %d", taken)
	}
}

func TestWeekDropsPastSlots(t *testing.T) {
	r := NewResolver(&fakeBooked{}, nil)
	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	week, err := r.Week(context.Background(), Request{WeekStart: "2025-06-16"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	// After Monday 12:00: 12:30 through 16:30 plus four full days.
	if want := 9 + 4*16; len(week.Slots) != want {
		t.Fatalf("expected %d slots, got %d", want, len(week.Slots))
	}
	if want := now.Add(30 * time.Minute); !week.Slots[0].StartsAt.Equal(want) {
		t.Fatalf("first slot should be %s, got %s", want, week.Slots[0].StartsAt)
	}
	for _, s := range week.Slots {
		if !s.StartsAt.After(now) {
			t.Fatalf("slot %s is not after now", s.StartsAt)
		}
	}
}

func TestWeekIsIdempotent(t *testing.T) {
	store := &fakeBooked{starts: []time.Time{time.Date(2025, 6, 17, 9, 30, 0, 0, time.UTC)}}
	r := NewResolver(store, nil)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	a, err := r.Week(context.Background(), Request{Timezone: "Europe/Berlin"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	b, err := r.Week(context.Background(), Request{Timezone: "Europe/Berlin"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if len(a.Slots) != len(b.Slots) {
		t.Fatalf("slot count differs")
	}
	for i := range a.Slots {
		if !a.Slots[i].StartsAt.Equal(b.Slots[i].StartsAt) || a.Slots[i].Available != b.Slots[i].Available {
			t.Fatalf("slot %d differs", i)
		}
	}
}

func TestWeekRendersInDisplayZone(t *testing.T) {
	store := &fakeBooked{}
	r := NewResolver(store, nil)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	week, err := r.Week(context.Background(), Request{Timezone: "America/New_York", WeekStart: "2025-06-16"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.Timezone != "America/New_York" {
		t.Fatalf("timezone %s", week.Timezone)
	}
	first := week.Slots[0].StartsAt
	if first.Hour() != 9 || first.Minute() != 0 {
		t.Fatalf("expected 09:00 local, got %s", first.Format(time.RFC3339))
	}
	if !first.Equal(time.Date(2025, 6, 16, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected instant %s", first)
	}
	if !store.from.Equal(time.Date(2025, 6, 16, 4, 0, 0, 0, time.UTC)) || !store.to.Equal(time.Date(2025, 6, 21, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bounds %s..%s", store.from, store.to)
	}
}

func TestWeekUnknownZoneFallsBackToUTC(t *testing.T) {
	r := NewResolver(&fakeBooked{}, nil)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	week, err := r.Week(context.Background(), Request{Timezone: "+05:17", WeekStart: "2025-06-16"}, now)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.Timezone != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", week.Timezone)
	}
}

func TestWeekErrors(t *testing.T) {
	r := NewResolver(&fakeBooked{}, nil)
	if _, err := r.Week(context.Background(), Request{WeekStart: "next monday"}, time.Now()); !errors.Is(err, ErrInvalidWeekStart) {
		t.Fatalf("expected ErrInvalidWeekStart, got %v", err)
	}

	boom := errors.New("db down")
	r = NewResolver(&fakeBooked{err: boom}, nil)
	if _, err := r.Week(context.Background(), Request{}, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestMarkSlotsPreservesOrder(t *testing.T) {
	base := time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
	candidates := []time.Time{base, base.Add(30 * time.Minute), base.Add(time.Hour)}
	// Booked instant expressed in another zone still matches.
	booked := []time.Time{base.Add(30 * time.Minute).In(time.FixedZone("+02:00", 7200))}
	slots := MarkSlots(candidates, booked, base.Add(-time.Hour))
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if !slots[0].Available || slots[1].Available || !slots[2].Available {
		t.Fatalf("unexpected availability %+v", slots)
	}
}

func TestMarkSlotsDropsOffGridStarts(t *testing.T) {
	kathmandu := time.FixedZone("+05:45", 5*3600+45*60)
	onGrid := time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)
	offGrid := time.Date(2025, 6, 16, 9, 0, 0, 0, kathmandu)
	slots := MarkSlots([]time.Time{offGrid, onGrid}, nil, onGrid.Add(-24*time.Hour))
	if len(slots) != 1 || !slots[0].StartsAt.Equal(onGrid) {
		t.Fatalf("expected only the aligned start, got %+v", slots)
	}
}
