package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ZoneError reports timezone input that could not be honoured. ResolveZone always pairs
// it with the UTC location; callers log it and carry on.
type ZoneError struct {
	Input string
	Err   error
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("timezone %q not recognised, using UTC: %v", e.Input, e.Err)
}

func (e *ZoneError) Unwrap() error { return e.Err }

var errUnknownOffset = errors.New("offset is not used by any timezone")

// knownOffsets holds every UTC offset, in minutes, that some zone observes in standard
// or daylight time.
var knownOffsets = map[int]struct{}{}

func init() {
	for _, off := range []string{
		"-12:00", "-11:00", "-10:00", "-09:30", "-09:00", "-08:00", "-07:00", "-06:00",
		"-05:00", "-04:00", "-03:30", "-03:00", "-02:30", "-02:00", "-01:00", "+00:00",
		"+01:00", "+02:00", "+03:00", "+03:30", "+04:00", "+04:30", "+05:00", "+05:30",
		"+05:45", "+06:00", "+06:30", "+07:00", "+08:00", "+08:45", "+09:00", "+09:30",
		"+10:00", "+10:30", "+11:00", "+12:00", "+12:45", "+13:00", "+13:45", "+14:00",
	} {
		mins, _ := parseOffset(off)
		knownOffsets[mins] = struct{}{}
	}
}

// ResolveZone accepts an IANA name ("America/New_York") or a fixed offset ("+05:30",
// "-0400"). Empty input means UTC. Input that names no zone, or an offset no zone uses,
// resolves to UTC together with a *ZoneError; the returned location is never nil.
func ResolveZone(raw string) (*time.Location, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "UTC", "Z", "Etc/UTC":
		return time.UTC, nil
	case "Local":
		return time.UTC, &ZoneError{Input: raw, Err: errors.New("server local zone is not accepted")}
	}

	if raw[0] == '+' || raw[0] == '-' {
		mins, err := parseOffset(raw)
		if err != nil {
			return time.UTC, &ZoneError{Input: raw, Err: err}
		}
		if _, ok := knownOffsets[mins]; !ok {
			return time.UTC, &ZoneError{Input: raw, Err: errUnknownOffset}
		}
		if mins == 0 {
			return time.UTC, nil
		}
		return time.FixedZone(formatOffset(mins), mins*60), nil
	}

	loc, err := time.LoadLocation(raw)
	if err != nil {
		return time.UTC, &ZoneError{Input: raw, Err: err}
	}
	return loc, nil
}

// OffsetName renders the offset carried by t as "+05:30".
func OffsetName(t time.Time) string {
	_, secs := t.Zone()
	return formatOffset(secs / 60)
}

func parseOffset(s string) (int, error) {
	if len(s) < 3 {
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 2 && len(body) != 4 {
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	hours, err := strconv.Atoi(body[:2])
	if err != nil {
		return 0, fmt.Errorf("malformed offset %q", s)
	}
	minutes := 0
	if len(body) == 4 {
		if minutes, err = strconv.Atoi(body[2:]); err != nil || minutes > 59 {
			return 0, fmt.Errorf("malformed offset %q", s)
		}
	}
	return sign * (hours*60 + minutes), nil
}

func formatOffset(mins int) string {
	sign := '+'
	if mins < 0 {
		sign = '-'
		mins = -mins
	}
	return fmt.Sprintf("%c%02d:%02d", sign, mins/60, mins%60)
}
