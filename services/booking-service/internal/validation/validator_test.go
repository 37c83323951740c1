package validation

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type fakeLookup struct {
	taken map[int64]bool
	err   error
}

func (f fakeLookup) ExistsAt(_ context.Context, t time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.taken[t.UnixNano()], nil
}

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func valid(startsAt time.Time) Candidate {
	return Candidate{Name: "Ada Lovelace", Email: "ada@example.com", Phone: "555-0100", StartsAt: startsAt}
}

func codes(t *testing.T, v *Validator, c Candidate) []string {
	t.Helper()
	vs, err := v.Validate(context.Background(), c, now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	return Codes(vs)
}

func TestValidateAcceptsGridSlot(t *testing.T) {
	v := New(fakeLookup{}, nil)
	if got := codes(t, v, valid(time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC))); len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
	if got := codes(t, v, valid(time.Date(2025, 6, 16, 16, 30, 0, 0, time.UTC))); len(got) != 0 {
		t.Fatalf("16:30 should be bookable, got %v", got)
	}
}

func TestValidateSingleRules(t *testing.T) {
	v := New(fakeLookup{}, nil)
	cases := []struct {
		name string
		at   time.Time
		want []string
	}{
		{"misaligned", time.Date(2025, 6, 16, 9, 15, 0, 0, time.UTC), []string{string(MisalignedSlot)}},
		{"saturday", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC), []string{string(NotWeekday)}},
		{"after hours", time.Date(2025, 6, 16, 17, 0, 0, 0, time.UTC), []string{string(OutsideBusinessHours)}},
		{"before opening", time.Date(2025, 6, 16, 8, 30, 0, 0, time.UTC), []string{string(OutsideBusinessHours)}},
		{"past", time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC), []string{string(PastSlot)}},
		{"exactly now", now, []string{string(PastSlot)}},
	}
	for _, tc := range cases {
		got := codes(t, v, valid(tc.at))
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidateUsesOffsetZone(t *testing.T) {
	v := New(fakeLookup{}, nil)
	ist := time.FixedZone("", 330*60)

	// 09:00 IST is 03:30 UTC: on the grid and inside local hours.
	if got := codes(t, v, valid(time.Date(2025, 6, 16, 9, 0, 0, 0, ist))); len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
	// 17:00 IST is 11:30 UTC, inside UTC hours but outside local ones.
	got := codes(t, v, valid(time.Date(2025, 6, 16, 17, 0, 0, 0, ist)))
	if !reflect.DeepEqual(got, []string{string(OutsideBusinessHours)}) {
		t.Fatalf("expected OutsideBusinessHours, got %v", got)
	}
}

func TestValidateUnknownOffsetFallsBackToUTC(t *testing.T) {
	v := New(fakeLookup{}, nil)
	odd := time.FixedZone("", 17*60)
	// 09:17 at +00:17 is 09:00 UTC; evaluated in UTC it passes.
	vs, err := v.Validate(context.Background(), valid(time.Date(2025, 6, 16, 9, 17, 0, 0, odd)), now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	taken := time.Date(2025, 6, 7, 20, 15, 0, 0, time.UTC) // past Saturday evening, misaligned
	v := New(fakeLookup{taken: map[int64]bool{taken.UnixNano(): true}}, nil)
	vs, err := v.Validate(context.Background(), Candidate{Email: "not-an-email", StartsAt: taken}, now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := []string{
		string(RequiredFieldsMissing),
		string(InvalidEmailFormat),
		string(MisalignedSlot),
		string(NotWeekday),
		string(PastSlot),
		string(SlotAlreadyBooked),
	}
	if got := Codes(vs); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if Has(vs, OutsideBusinessHours) {
		t.Fatalf("weekend should not also report business hours")
	}
}

func TestValidateMissingFields(t *testing.T) {
	v := New(fakeLookup{}, nil)
	vs, err := v.Validate(context.Background(), Candidate{}, now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := Codes(vs); !reflect.DeepEqual(got, []string{string(RequiredFieldsMissing)}) {
		t.Fatalf("expected RequiredFieldsMissing once, got %v", got)
	}
	want := []string{"Name can't be blank", "Email can't be blank", "Starts at can't be blank"}
	if got := Messages(vs); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidateTakenSlot(t *testing.T) {
	at := time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)
	v := New(fakeLookup{taken: map[int64]bool{at.UnixNano(): true}}, nil)
	got := codes(t, v, valid(at))
	if !reflect.DeepEqual(got, []string{string(SlotAlreadyBooked)}) {
		t.Fatalf("expected SlotAlreadyBooked, got %v", got)
	}
}

func TestValidateLookupFailure(t *testing.T) {
	boom := errors.New("db down")
	v := New(fakeLookup{err: boom}, nil)
	if _, err := v.Validate(context.Background(), valid(time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC)), now); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
