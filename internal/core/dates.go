package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthYearLayout is the fixed tick label layout ("Jan 2024").
const MonthYearLayout = "Jan 2006"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01",
	"01/02/2006",
	MonthYearLayout,
}

// ParseDate reads a payload date. Offsets are kept as written so a label
// always shows the calendar month of the input, whatever the host zone.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// FormatMonthYear converts a payload date into an abbreviated month/year label.
func FormatMonthYear(s string) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(MonthYearLayout), nil
}
