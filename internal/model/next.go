package model

import "time"

// NextAfter computes the single next occurrence strictly after anchor.
// The time-of-day and location of anchor are preserved; the engine never
// reads a clock.
func (p RecurrencePattern) NextAfter(anchor time.Time) (time.Time, error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, err
	}

	switch p.Frequency {
	case FrequencyDaily, FrequencyCustom:
		return anchor.AddDate(0, 0, p.Interval), nil
	case FrequencyWeekly:
		return p.nextWeekly(anchor), nil
	case FrequencyMonthly:
		return p.nextMonthly(anchor), nil
	case FrequencyYearly:
		return p.nextYearly(anchor), nil
	default:
		// Unreachable after Validate.
		return time.Time{}, ErrInvalidFrequency
	}
}

// nextWeekly walks forward through the selected weekdays. A later day in
// the current week wins regardless of interval; once the week's days are
// exhausted the cycle jumps to the first selected day, interval weeks on.
func (p RecurrencePattern) nextWeekly(anchor time.Time) time.Time {
	days := p.sortedDays()
	if len(days) == 0 {
		return anchor.AddDate(0, 0, 7*p.Interval)
	}

	current := int(anchor.Weekday())
	for _, d := range days {
		if d > current {
			return anchor.AddDate(0, 0, d-current)
		}
	}
	return anchor.AddDate(0, 0, (7-current)+days[0]+(p.Interval-1)*7)
}

func (p RecurrencePattern) nextMonthly(anchor time.Time) time.Time {
	day := anchor.Day()
	if p.DayOfMonth != 0 {
		day = p.DayOfMonth
	}
	return dateInMonth(anchor, anchor.Year(), int(anchor.Month())+p.Interval, day)
}

func (p RecurrencePattern) nextYearly(anchor time.Time) time.Time {
	month := int(anchor.Month())
	if p.MonthOfYear != 0 {
		month = p.MonthOfYear
	}
	day := anchor.Day()
	if p.DayOfMonth != 0 {
		day = p.DayOfMonth
	}
	return dateInMonth(anchor, anchor.Year()+p.Interval, month, day)
}

// dateInMonth builds a date in the (possibly overflowing) year/month pair
// with the day clamped to the month's length, keeping anchor's clock.
// AddDate is avoided on purpose: it normalizes Jan 31 + 1 month to Mar 3,
// and the policy here is clamp-to-last-day, never roll over.
func dateInMonth(anchor time.Time, year, month, day int) time.Time {
	for month > 12 {
		month -= 12
		year++
	}
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
