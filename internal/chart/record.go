package chart

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Record is one generated chart. Content is the service output, unmodified.
//
// Template is the template id ("full@v1") the chart was generated with. It is
// set for freshly generated records only; the chart log does not store it.
type Record struct {
	Date     string
	Time     string
	Content  string
	Template string
}

func NewRecord(at time.Time, content string, tmpl Template) Record {
	return Record{
		Date:     at.Format(DateLayout),
		Time:     at.Format(TimeLayout),
		Content:  content,
		Template: tmpl.ID(),
	}
}

// Normalize returns r with date and time rewritten in their canonical
// layouts, so "9:05:00" becomes "09:05:00" and string order matches time order.
func (r Record) Normalize() (Record, error) {
	day, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return Record{}, fmt.Errorf("invalid date %q: %w", r.Date, err)
	}
	clock, err := time.Parse(TimeLayout, r.Time)
	if err != nil {
		return Record{}, fmt.Errorf("invalid time %q: %w", r.Time, err)
	}
	r.Date = day.Format(DateLayout)
	r.Time = clock.Format(TimeLayout)
	return r, nil
}

// ParseDate normalizes a YYYY-MM-DD string.
func ParseDate(value string) (string, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return parsed.Format(DateLayout), nil
}
