package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidOccurrenceBound = errors.New("model: occurrence bound must be positive")
	ErrNoForwardProgress      = errors.New("model: recurrence failed to advance")
)

// Occurrences generates the bounded ordered sequence of occurrences after
// anchor, feeding each result back in as the next anchor. It is a pure
// function of its arguments: calling it again reproduces the same dates.
//
// maxCount is mandatory; the engine never accepts an unbounded request.
// The pattern's own Count and EndDate also bind, whichever triggers first.
// Both end-date bounds are exclusive: a computed date past the bound is
// discarded and generation stops.
func (p RecurrencePattern) Occurrences(anchor time.Time, maxCount int, endDate *time.Time) ([]time.Time, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOccurrenceBound, maxCount)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	limit := maxCount
	if p.Count > 0 && p.Count < limit {
		limit = p.Count
	}

	out := make([]time.Time, 0, limit)
	cursor := anchor
	for len(out) < limit {
		next, err := p.NextAfter(cursor)
		if err != nil {
			return nil, err
		}
		if !next.After(cursor) {
			// Validate rules this out structurally; the guard keeps a
			// future frequency bug from turning into an infinite loop.
			return nil, fmt.Errorf("%w: %s", ErrNoForwardProgress, next.Format(time.RFC3339))
		}
		if p.EndDate != nil && next.After(*p.EndDate) {
			break
		}
		if endDate != nil && next.After(*endDate) {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}
