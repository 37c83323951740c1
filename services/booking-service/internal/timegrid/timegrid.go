// Package timegrid enumerates the bookable 30-minute grid of a week and classifies
// instants against it. Everything here is pure: callers pass the clock and the zone.
package timegrid

import (
	"fmt"
	"time"
)

const (
	// WindowDays is the calendar span of one availability window, starting at the anchor.
	WindowDays = 5
	// SlotsPerDay is the number of starts between 09:00 and 16:30 inclusive.
	SlotsPerDay = 16

	OpeningHour     = 9
	LastStartHour   = 16
	LastStartMinute = 30
)

var slotMinutes = [...]int{0, 30}

const dateLayout = "2006-01-02"

// WeekAnchor returns midnight (in loc) of the first day of the window. An explicit
// YYYY-MM-DD date is used as is; otherwise the anchor is the first Monday strictly after
// today in loc, so the default window never includes the current week.
func WeekAnchor(explicit string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if explicit != "" {
		d, err := time.ParseInLocation(dateLayout, explicit, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("week_start must be YYYY-MM-DD: %w", err)
		}
		return d, nil
	}

	today := now.In(loc)
	ahead := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return time.Date(today.Year(), today.Month(), today.Day()+ahead, 0, 0, 0, 0, loc), nil
}

// SlotsForWeek lists every slot start of the window beginning at anchor, in UTC,
// ordered day-major then time. Saturdays and Sundays inside the span are skipped, so a
// Monday anchor yields WindowDays*SlotsPerDay instants and later anchors fewer.
func SlotsForWeek(loc *time.Location, anchor time.Time) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := anchor.Date()
	slots := make([]time.Time, 0, WindowDays*SlotsPerDay)
	for i := 0; i < WindowDays; i++ {
		day := time.Date(y, m, d+i, 12, 0, 0, 0, time.UTC)
		if isWeekend(day.Weekday()) {
			continue
		}
		for hour := OpeningHour; hour <= LastStartHour; hour++ {
			for _, minute := range slotMinutes {
				local := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
				slots = append(slots, local.UTC())
			}
		}
	}
	return slots
}

// WindowBounds returns [start, end) covering the whole window in loc, as UTC instants.
func WindowBounds(loc *time.Location, anchor time.Time) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := anchor.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+WindowDays, 0, 0, 0, 0, loc)
	return start.UTC(), end.UTC()
}

// IsAligned reports whether t sits on a half-hour boundary of the reference (UTC) clock.
func IsAligned(t time.Time) bool {
	u := t.UTC()
	if u.Second() != 0 || u.Nanosecond() != 0 {
		return false
	}
	for _, m := range slotMinutes {
		if u.Minute() == m {
			return true
		}
	}
	return false
}

// IsWeekday reports whether t falls on Monday to Friday in loc.
func IsWeekday(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	return !isWeekend(t.In(loc).Weekday())
}

// IsWithinBusinessHours is true for weekday starts from 09:00 up to and including 16:30
// local time, the last start that still ends by 17:00.
func IsWithinBusinessHours(t time.Time, loc *time.Location) bool {
	if !IsWeekday(t, loc) {
		return false
	}
	return withinOpeningHours(t.In(loc))
}

func withinOpeningHours(local time.Time) bool {
	h, m := local.Hour(), local.Minute()
	if h < OpeningHour || h > LastStartHour {
		return false
	}
	return h < LastStartHour || m <= LastStartMinute
}

// IsFuture is strict: a slot starting exactly now is already gone.
func IsFuture(t, now time.Time) bool {
	return t.After(now)
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
