package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimestampLayouts are tried in order when no layouts are configured.
// Slash layouts are month first, matching the source workbook's text cells.
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	"2006-01-02",
	"1/2/2006",
}

// DefaultLocation is the zone applied to timestamps that carry none.
const DefaultLocation = "Asia/Bangkok"

// TimestampParser resolves incident_datetime strings.
type TimestampParser struct {
	layouts []string
	loc     *time.Location
}

// NewTimestampParser creates a parser. Empty layouts fall back to
// DefaultTimestampLayouts and a nil location to DefaultLocation.
func NewTimestampParser(layouts []string, loc *time.Location) *TimestampParser {
	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}
	if loc == nil {
		loc = defaultLocation()
	}
	return &TimestampParser{layouts: layouts, loc: loc}
}

// defaultLocation loads DefaultLocation, falling back to its fixed offset when
// the zone database is unavailable. Thailand observes no daylight saving.
func defaultLocation() *time.Location {
	if loc, err := time.LoadLocation(DefaultLocation); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*60*60)
}

// Parse returns the first successful interpretation of raw across the
// configured layouts. The error wraps ErrUnparseableTimestamp.
func (p *TimestampParser) Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseableTimestamp)
	}
	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

// monthYear formats the MonthYear key, e.g. "2019-01".
func monthYear(t time.Time) string {
	return t.Format("2006-01")
}
