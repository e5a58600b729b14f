// Package normalize converts vendor date, time and price representations into
// the canonical forms used across the system: YYYY-MM-DD dates, 24-hour HH:MM
// times and numeric prices.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"teemarker/models"
)

const DateLayout = "2006-01-02"

var (
	twelveHourPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp])\.?[Mm]\.?$`)
	clockPattern      = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	compactPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01-02-2006",
	"1-2-2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Mon Jan 02 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseTime returns a zero-padded 24-hour HH:MM for "8:30 AM", "08:30" or "830".
// Unrecognized input is returned unchanged.
func ParseTime(raw string) string {
	t := strings.TrimSpace(raw)

	if m := twelveHourPattern.FindStringSubmatch(t); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if hours < 1 || hours > 12 || minutes > 59 {
			return raw
		}
		pm := strings.EqualFold(m[3], "p")
		switch {
		case pm && hours != 12:
			hours += 12
		case !pm && hours == 12:
			hours = 0
		}
		return formatClock(hours, minutes)
	}

	if m := clockPattern.FindStringSubmatch(t); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if hours > 23 || minutes > 59 {
			return raw
		}
		return formatClock(hours, minutes)
	}

	if compactPattern.MatchString(t) {
		hours, _ := strconv.Atoi(t[:len(t)-2])
		minutes, _ := strconv.Atoi(t[len(t)-2:])
		if hours > 23 || minutes > 59 {
			return raw
		}
		return formatClock(hours, minutes)
	}

	return raw
}

func formatClock(hours, minutes int) string {
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}

// ParseDate normalizes a date to YYYY-MM-DD, returning the input unchanged when
// no known layout matches.
func ParseDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DateLayout)
		}
	}
	return raw
}

// CalculatePrice extracts a numeric price. The boolean is false when no price
// can be determined; that is distinct from a price of zero.
func CalculatePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case float32:
		return float64(p), true
	case int:
		return float64(p), true
	case int64:
		return float64(p), true
	case int32:
		return float64(p), true
	case json.Number:
		f, err := p.Float64()
		return f, err == nil
	case string:
		return parsePriceString(p)
	case *string:
		if p == nil {
			return 0, false
		}
		return parsePriceString(*p)
	default:
		return 0, false
	}
}

func parsePriceString(s string) (float64, bool) {
	var b strings.Builder
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			dots++
			if dots > 1 {
				// "45.00.1" reads as 45.00, like a leading-number parse would
				return finishPrice(b.String())
			}
			b.WriteRune(r)
		}
	}
	return finishPrice(b.String())
}

func finishPrice(s string) (float64, bool) {
	if s == "" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// PricePtr is CalculatePrice for optional model fields.
func PricePtr(v any) *float64 {
	f, ok := CalculatePrice(v)
	if !ok {
		return nil
	}
	return &f
}

// IsTimeInRange compares zero-padded HHMM strings. A missing range or bound
// matches every time.
func IsTimeInRange(t string, r *models.TimeRange) bool {
	if r == nil || r.Start == "" || r.End == "" {
		return true
	}
	v := compactClock(t)
	return v >= compactClock(r.Start) && v <= compactClock(r.End)
}

func compactClock(t string) string {
	return strings.Replace(ParseTime(t), ":", "", 1)
}
