package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceCustom  RecurrenceType = "custom"
)

var (
	ErrInvalidRecurrenceType = errors.New("model: invalid recurrence type")
	ErrInvalidMonthDay       = errors.New("model: monthly recurrence day must be 1-31")
	ErrInvalidWeekday        = errors.New("model: invalid weekday in recurrence")
)

// Recurrence is a tagged union: Type selects the variant, and only the
// fields of that variant are meaningful. It round-trips through a JSON
// string at the storage boundary.
type Recurrence struct {
	Type        RecurrenceType `json:"type"`
	Days        []time.Weekday `json:"days,omitempty"`        // weekly
	Day         int            `json:"day,omitempty"`         // monthly
	Description string         `json:"description,omitempty"` // custom
}

// customFallback is the placeholder advance for custom patterns, which
// carry no machine-readable schedule.
const customFallback = 7 * 24 * time.Hour

func (r Recurrence) Validate() error {
	switch r.Type {
	case RecurrenceDaily, RecurrenceCustom:
	case RecurrenceWeekly:
		seen := make(map[time.Weekday]bool, len(r.Days))
		for _, d := range r.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
			}
			if seen[d] {
				return fmt.Errorf("%w: duplicate %s", ErrInvalidWeekday, d)
			}
			seen[d] = true
		}
	case RecurrenceMonthly:
		if r.Day < 1 || r.Day > 31 {
			return fmt.Errorf("%w: %d", ErrInvalidMonthDay, r.Day)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, r.Type)
	}
	return nil
}

// Next computes the occurrence that follows current. The result is always
// strictly after current; ok is false when the pattern type is unknown.
func (r Recurrence) Next(current time.Time) (time.Time, bool) {
	switch r.Type {
	case RecurrenceDaily:
		return current.Add(24 * time.Hour), true
	case RecurrenceWeekly:
		return r.nextWeekly(current), true
	case RecurrenceMonthly:
		return r.nextMonthly(current), true
	case RecurrenceCustom:
		return current.Add(customFallback), true
	default:
		return time.Time{}, false
	}
}

func (r Recurrence) nextWeekly(current time.Time) time.Time {
	if len(r.Days) == 0 {
		return current.AddDate(0, 0, 7)
	}
	days := append([]time.Weekday(nil), r.Days...)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	cur := current.Weekday()
	for _, d := range days {
		if d > cur {
			return current.AddDate(0, 0, int(d-cur))
		}
	}
	// Wrap to the earliest weekday in the set next week.
	return current.AddDate(0, 0, 7-int(cur)+int(days[0]))
}

func (r Recurrence) nextMonthly(current time.Time) time.Time {
	y, m, _ := current.Date()
	loc := current.Location()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	ny, nm, _ := first.Date()

	day := r.Day
	if last := daysInMonth(ny, nm, loc); day > last {
		day = last
	}
	return time.Date(ny, nm, day, current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), loc)
}

func daysInMonth(y int, m time.Month, loc *time.Location) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

// Text renders the pattern for the notification payload, e.g.
// "Weekly on Monday, Wednesday".
func (r Recurrence) Text() string {
	switch r.Type {
	case RecurrenceDaily:
		return "Every day"
	case RecurrenceWeekly:
		if len(r.Days) == 0 {
			return "Weekly"
		}
		if len(r.Days) == 7 {
			return "Every day"
		}
		days := append([]time.Weekday(nil), r.Days...)
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
		names := make([]string, 0, len(days))
		for _, d := range days {
			names = append(names, d.String())
		}
		return "Weekly on " + strings.Join(names, ", ")
	case RecurrenceMonthly:
		return fmt.Sprintf("Monthly on day %d", r.Day)
	case RecurrenceCustom:
		if r.Description != "" {
			return r.Description
		}
		return "Custom schedule"
	default:
		return "Recurring"
	}
}

// EncodeRecurrence serializes a pattern for storage. A nil pattern encodes
// as the empty string.
func EncodeRecurrence(r *Recurrence) (string, error) {
	if r == nil {
		return "", nil
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode recurrence: %w", err)
	}
	return string(raw), nil
}

// ParseRecurrence is the inverse of EncodeRecurrence.
func ParseRecurrence(s string) (*Recurrence, error) {
	if s == "" {
		return nil, nil
	}
	var r Recurrence
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
