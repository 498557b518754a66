package auth

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDurationMillis is returned by ParseDurationMillis for input it cannot read: one week.
const DefaultDurationMillis int64 = 7 * 24 * 60 * 60 * 1000

const (
	secsPerMinute = 60
	secsPerHour   = 60 * secsPerMinute
	secsPerDay    = 24 * secsPerHour
	secsPerWeek   = 7 * secsPerDay
	secsPerYear   = 365.25 * secsPerDay
)

// maxMillisSeconds keeps secs*1000 within int64.
const maxMillisSeconds = math.MaxInt64 / 1000

var durationPattern = regexp.MustCompile(
	`(?i)^(\+|-)? ?(\d+|\d+\.\d+) ?(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|years?|yrs?|y)(?: (ago|from now))?$`,
)

// ParseDurationMillis converts a relative-time expression such as "10 minutes",
// "-5 days" or "3 hours ago" into signed milliseconds. A leading sign combined
// with a trailing qualifier, or anything outside the grammar, yields
// DefaultDurationMillis, as does a magnitude too large for int64 milliseconds.
// It never fails.
func ParseDurationMillis(expr string) int64 {
	m := durationPattern.FindStringSubmatch(expr)
	if m == nil {
		return DefaultDurationMillis
	}
	sign, magnitude, unit, qualifier := m[1], m[2], strings.ToLower(m[3]), strings.ToLower(m[4])
	if sign != "" && qualifier != "" {
		return DefaultDurationMillis
	}
	value, err := strconv.ParseFloat(magnitude, 64)
	if err != nil {
		return DefaultDurationMillis
	}

	var perUnit float64
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		perUnit = 1
	case "m", "min", "mins", "minute", "minutes":
		perUnit = secsPerMinute
	case "h", "hr", "hrs", "hour", "hours":
		perUnit = secsPerHour
	case "d", "day", "days":
		perUnit = secsPerDay
	case "w", "week", "weeks":
		perUnit = secsPerWeek
	default:
		perUnit = secsPerYear
	}
	// Round half up on whole seconds before scaling to milliseconds.
	scaled := math.Floor(value*perUnit + 0.5)
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) || scaled > maxMillisSeconds {
		return DefaultDurationMillis
	}
	secs := int64(scaled)

	if sign == "-" || qualifier == "ago" {
		return -secs * 1000
	}
	return secs * 1000
}

// maxDurationMillis is the largest millisecond count a time.Duration can hold.
const maxDurationMillis = int64(math.MaxInt64 / time.Millisecond)

// ParseDuration is ParseDurationMillis as a time.Duration. Offsets beyond the
// range of time.Duration (about 292 years) fall back to the default.
func ParseDuration(expr string) time.Duration {
	ms := ParseDurationMillis(expr)
	if ms > maxDurationMillis || ms < -maxDurationMillis {
		ms = DefaultDurationMillis
	}
	return time.Duration(ms) * time.Millisecond
}
