package core

import (
	"strings"
	"time"
)

// DateLayout is the civil date format used for planner dates and range queries.
const DateLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr cleans `s` and returns nil when nothing is left.
func CleanStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanString(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate formats `t` as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange is an inclusive range of civil dates; empty bounds are open.
type DateRange struct {
	From string `query:"from" json:"from,omitempty" validate:"omitempty,isodate"`
	To   string `query:"to" json:"to,omitempty" validate:"omitempty,isodate"`
}

// Contains reports whether `date` (YYYY-MM-DD) falls inside the range.
// YYYY-MM-DD strings order lexically like the dates they represent.
func (dr DateRange) Contains(date string) bool {
	if dr.From != "" && date < dr.From {
		return false
	}
	if dr.To != "" && date > dr.To {
		return false
	}
	return true
}

func (dr DateRange) IsEmpty() bool {
	return dr.From == "" && dr.To == ""
}

// Key renders the range for use in cache keys.
func (dr DateRange) Key() string {
	if dr.IsEmpty() {
		return "all"
	}
	return dr.From + ".." + dr.To
}

// Validate checks bound ordering; formats are checked by the validator tags.
func (dr DateRange) Validate() error {
	if dr.From != "" && dr.To != "" && dr.From > dr.To {
		return NewValidationError(nil, FieldError{Field: "from", Error: "from must not be after to"})
	}
	return nil
}
