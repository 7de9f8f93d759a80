package card

import (
	"fmt"
	"strings"
	"time"
)

// ValidityDays is the lifetime of every card.
const ValidityDays = 7

// dateLayouts are tried in order. Single-digit months and days are accepted.
var dateLayouts = []struct {
	layout  string
	display string
}{
	{"2006-1-2", "YYYY-MM-DD"},
	{"2006/1/2", "YYYY/MM/DD"},
	{"1-2-2006", "MM-DD-YYYY"},
	{"1/2/2006", "MM/DD/YYYY"},
}

// AcceptedFormats lists the textual date formats ParseDate understands.
func AcceptedFormats() []string {
	out := make([]string, len(dateLayouts))
	for i, l := range dateLayouts {
		out[i] = l.display
	}
	return out
}

// DateFormatError is returned when a date matches none of the accepted formats.
type DateFormatError struct {
	Input    string
	Accepted []string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date %q: expected one of %s", e.Input, strings.Join(e.Accepted, ", "))
}

// ParseDate converts v into a calendar date at midnight UTC. v may be a
// string in one of the accepted formats, a time.Time or a *time.Time.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return Today(d), nil
	case *time.Time:
		if d != nil {
			return Today(*d), nil
		}
		return time.Time{}, &DateFormatError{Accepted: AcceptedFormats()}
	case string:
		s := strings.TrimSpace(d)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l.layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, &DateFormatError{Input: d, Accepted: AcceptedFormats()}
	default:
		return time.Time{}, &DateFormatError{Input: fmt.Sprint(v), Accepted: AcceptedFormats()}
	}
}

// ParseDateLayout parses s strictly against a single Go layout.
func ParseDateLayout(s, layout string) (time.Time, error) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &DateFormatError{Input: s, Accepted: []string{DisplayLayout(layout)}}
	}
	return t, nil
}

// DisplayLayout renders a Go reference layout the way users read it,
// e.g. "01/02/2006" becomes "MM/DD/YYYY".
func DisplayLayout(layout string) string {
	return strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD").Replace(layout)
}

// Today truncates t to its calendar date, expressed at midnight UTC.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Expiration returns the expiration date for a card issued on issue.
func Expiration(issue time.Time) time.Time {
	return Today(issue).AddDate(0, 0, ValidityDays)
}

// PreviewExpiration parses a user-entered issue date and formats its
// expiration as M/D/YYYY.
func PreviewExpiration(issue, layout string) (string, error) {
	t, err := ParseDateLayout(issue, layout)
	if err != nil {
		return "", err
	}
	return Expiration(t).Format("1/2/2006"), nil
}
