package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// canonicalNumber strips everything but digits and keeps the trailing
// significant digits when configured.
func canonicalNumber(raw string, significantDigits int) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if significantDigits > 0 && len(digits) > significantDigits {
		digits = digits[len(digits)-significantDigits:]
	}
	return digits
}

// timestampLayouts are the full-timestamp formats accepted before falling
// back to bare time-of-day parsing.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseCallTime(raw string, day time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty call time")
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}

	if ts, err := time.Parse("15:04:05", value); err == nil {
		anchor := day.UTC()
		return time.Date(anchor.Year(), anchor.Month(), anchor.Day(),
			ts.Hour(), ts.Minute(), ts.Second(), 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unparseable call time %q", value)
}

func parseDuration(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q", value)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("non-finite duration %q", value)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return int64(math.Round(seconds)), nil
}
