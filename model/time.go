package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const Day = 24 * time.Hour

// A time of day relative to the start of a service day, with one
// second resolution. Values of 24:00:00 and above denote service
// running past midnight.
type TimeOfDay int32

type TimeParseError struct {
	Input  string
	Reason string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid time of day '%s': %s", e.Input, e.Reason)
}

// Parses a GTFS "HH:MM:SS" time. Hours may be a single digit and may
// exceed 23, up to 99.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	trimmed := strings.TrimSpace(s)
	split := strings.Split(trimmed, ":")
	if len(split) != 3 {
		return 0, &TimeParseError{s, fmt.Sprintf("found %d parts", len(split))}
	}

	hms := [3]int{}
	for i, str := range split {
		if str == "" || len(str) > 2 {
			return 0, &TimeParseError{s, fmt.Sprintf("bad length at pos %d", i)}
		}
		j, err := strconv.Atoi(str)
		if err != nil {
			return 0, &TimeParseError{s, fmt.Sprintf("non-integer at pos %d", i)}
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return 0, &TimeParseError{s, "invalid hour"}
	}
	if len(split[1]) != 2 || hms[1] < 0 || hms[1] > 59 {
		return 0, &TimeParseError{s, "invalid minute"}
	}
	if len(split[2]) != 2 || hms[2] < 0 || hms[2] > 59 {
		return 0, &TimeParseError{s, "invalid second"}
	}

	return TimeOfDay(hms[0]*3600 + hms[1]*60 + hms[2]), nil
}

// Offset from the start of the service day.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// Signed duration t - u.
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return time.Duration(int64(t)-int64(u)) * time.Second
}

// Splits t into whole days past the service day and the remaining
// clock time. 25:30:00 yields (1, 01:30:00).
func (t TimeOfDay) DayOffset() (int, TimeOfDay) {
	const daySeconds = 24 * 3600
	days := int(t) / daySeconds
	return days, t - TimeOfDay(days*daySeconds)
}

// The absolute time of t on the given service date. Only the date part
// of serviceDate is used.
func (t TimeOfDay) On(serviceDate time.Time) time.Time {
	// GTFS times are measured from "noon minus 12h" so they stay
	// correct across DST changes.
	noon := time.Date(serviceDate.Year(), serviceDate.Month(), serviceDate.Day(), 12, 0, 0, 0, serviceDate.Location())
	return noon.Add(-12 * time.Hour).Add(t.Duration())
}

func (t TimeOfDay) String() string {
	h := int(t) / 3600
	m := (int(t) % 3600) / 60
	s := int(t) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ExceedsDay reports whether d spans one calendar day or more, in
// either direction.
func ExceedsDay(d time.Duration) bool {
	return d >= Day || d <= -Day
}
