package billing

import (
	"fmt"
	"strings"
	"time"
)

// TimeKey is the persisted representation of a period boundary.
type TimeKey string

// NewTimeKey builds a TimeKey for the given granularity and period start.
func NewTimeKey(granularity Granularity, periodStart time.Time) (TimeKey, error) {
	if periodStart.IsZero() {
		return "", ErrInvalidPeriodStart
	}
	layout, err := timeKeyLayout(granularity)
	if err != nil {
		return "", err
	}
	return TimeKey(periodStart.Format(layout)), nil
}

// String returns the raw string for storage.
func (k TimeKey) String() string { return string(k) }

func timeKeyLayout(granularity Granularity) (string, error) {
	switch granularity {
	case GranularityDay:
		return "20060102", nil
	case GranularityMonth:
		return "200601", nil
	default:
		return "", ErrInvalidGranularity
	}
}

// PeriodStart truncates t to the start of its period in UTC.
func PeriodStart(granularity Granularity, t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrInvalidPeriodStart
	}
	t = t.UTC()
	switch granularity {
	case GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, ErrInvalidGranularity
	}
}

// PeriodEnd returns the exclusive end of the period starting at start.
func PeriodEnd(granularity Granularity, start time.Time) (time.Time, error) {
	switch granularity {
	case GranularityDay:
		return start.AddDate(0, 0, 1), nil
	case GranularityMonth:
		return start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, ErrInvalidGranularity
	}
}

var (
	dayLayouts   = []string{"2006-01-02", "20060102"}
	monthLayouts = []string{"2006-01", "200601", "2006-01-02", "20060102"}
)

// History bounds used when a range query leaves an end open.
var (
	HistoryFloor   = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	HistoryCeiling = time.Date(9999, time.December, 1, 0, 0, 0, 0, time.UTC)
)

// ParseAccountingDate parses a calendar date such as "2024-01-31" or "20240131".
func ParseAccountingDate(value string) (time.Time, error) {
	return parsePeriod(GranularityDay, value, dayLayouts)
}

// ParseAccountingMonth parses a month such as "2024-01" or "202401".
// A full date is accepted and truncated to its month.
func ParseAccountingMonth(value string) (time.Time, error) {
	return parsePeriod(GranularityMonth, value, monthLayouts)
}

// ParsePeriod parses value according to the granularity's accepted layouts.
func ParsePeriod(granularity Granularity, value string) (time.Time, error) {
	switch granularity {
	case GranularityDay:
		return ParseAccountingDate(value)
	case GranularityMonth:
		return ParseAccountingMonth(value)
	default:
		return time.Time{}, fmt.Errorf("%w: granularity %q", ErrInvalidArgument, granularity)
	}
}

func parsePeriod(granularity Granularity, value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidArgument)
	}
	for _, layout := range layouts {
		if len(layout) != len(value) {
			continue
		}
		parsed, err := time.ParseInLocation(layout, value, time.UTC)
		if err != nil {
			continue
		}
		return PeriodStart(granularity, parsed)
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidArgument, value)
}

// ParseGranularity accepts "day"/"daily" and "month"/"monthly" in any case.
func ParseGranularity(value string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "day", "daily":
		return GranularityDay, nil
	case "month", "monthly":
		return GranularityMonth, nil
	default:
		return "", fmt.Errorf("%w: granularity %q", ErrInvalidArgument, value)
	}
}
