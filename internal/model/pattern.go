package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	// FrequencyCustom has no richer rule of its own yet and behaves as
	// every-N-days. Kept as a distinct value so stored schedules keep
	// their intent.
	FrequencyCustom Frequency = "custom"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyCustom:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidPattern     = errors.New("model: invalid recurrence pattern")
	ErrInvalidFrequency   = errors.New("model: invalid recurrence frequency")
	ErrInvalidInterval    = errors.New("model: invalid recurrence interval")
	ErrInvalidDayOfWeek   = errors.New("model: day of week out of range")
	ErrInvalidDayOfMonth  = errors.New("model: day of month out of range")
	ErrInvalidMonthOfYear = errors.New("model: month of year out of range")
	ErrInvalidCount       = errors.New("model: invalid occurrence count")

	ErrMalformedDaysOfWeek = errors.New("model: malformed days_of_week payload")
)

// RecurrencePattern is the declarative rule describing how a recurring
// schedule repeats. It is a plain value: the engine receives it as input
// and never stores it.
type RecurrencePattern struct {
	Frequency   Frequency
	Interval    int
	DaysOfWeek  []int // weekday indices, 0 = Sunday; weekly only
	DayOfMonth  int   // 1-31, 0 when unset; monthly and yearly
	MonthOfYear int   // 1-12, 0 when unset; yearly only
	EndDate     *time.Time
	Count       int // total occurrences, 0 when unset
}

// Validate checks the structural invariants. Every failure wraps both
// ErrInvalidPattern and the specific sentinel, so callers can match the
// class or the exact violation.
func (p RecurrencePattern) Validate() error {
	if !p.Frequency.IsValid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidPattern, ErrInvalidFrequency, p.Frequency)
	}
	if p.Interval < 1 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidPattern, ErrInvalidInterval, p.Interval)
	}
	for _, d := range p.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %w: %d", ErrInvalidPattern, ErrInvalidDayOfWeek, d)
		}
	}
	if p.DayOfMonth != 0 && (p.DayOfMonth < 1 || p.DayOfMonth > 31) {
		return fmt.Errorf("%w: %w: %d", ErrInvalidPattern, ErrInvalidDayOfMonth, p.DayOfMonth)
	}
	if p.MonthOfYear != 0 && (p.MonthOfYear < 1 || p.MonthOfYear > 12) {
		return fmt.Errorf("%w: %w: %d", ErrInvalidPattern, ErrInvalidMonthOfYear, p.MonthOfYear)
	}
	if p.Count < 0 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidPattern, ErrInvalidCount, p.Count)
	}
	return nil
}

// sortedDays returns the day set sorted ascending with duplicates removed.
// Input order is not significant; the next-day search requires ascending
// order to be deterministic.
func (p RecurrencePattern) sortedDays() []int {
	if len(p.DaysOfWeek) == 0 {
		return nil
	}
	out := make([]int, 0, len(p.DaysOfWeek))
	seen := make(map[int]bool, len(p.DaysOfWeek))
	for _, d := range p.DaysOfWeek {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// EncodeDaysOfWeek renders a day set as the JSON integer array stored in
// the scalar days_of_week column.
func EncodeDaysOfWeek(days []int) string {
	if len(days) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(days)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeDaysOfWeek parses the stored JSON array back into a day set. A
// malformed payload returns ErrMalformedDaysOfWeek; boundary callers are
// expected to degrade to "no specific days" rather than fail the record.
func DecodeDaysOfWeek(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var days []int
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDaysOfWeek, err)
	}
	if len(days) == 0 {
		return nil, nil
	}
	return days, nil
}
