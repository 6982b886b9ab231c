package model

import (
	"errors"
	"testing"
	"time"
)

func TestOccurrencesBoundedByCount(t *testing.T) {
	p := RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	list, err := p.Occurrences(anchor, 5, nil)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 occurrences, got %d", len(list))
	}
	prev := anchor
	for i, occ := range list {
		if !occ.Equal(prev.AddDate(0, 0, 1)) {
			t.Fatalf("occurrence %d not one day after previous: %s", i, occ.Format(time.RFC3339))
		}
		prev = occ
	}
}

func TestOccurrencesBoundedByEndDate(t *testing.T) {
	p := RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	end := anchor.AddDate(0, 0, 3)

	list, err := p.Occurrences(anchor, 100, &end)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(list))
	}
	for _, occ := range list {
		if occ.After(end) {
			t.Fatalf("occurrence past end date: %s", occ.Format(time.RFC3339))
		}
	}
}

func TestOccurrencesHonorPatternEndDate(t *testing.T) {
	end := time.Date(2026, 2, 20, 23, 59, 0, 0, time.UTC)
	p := RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, EndDate: &end}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	list, err := p.Occurrences(anchor, 10, nil)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(list) != 1 || list[0].Format("2006-01-02") != "2026-02-16" {
		t.Fatalf("unexpected occurrences: %v", list)
	}
}

func TestOccurrencesCountBoundBindsFirst(t *testing.T) {
	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	p := RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, Count: 2, EndDate: &end}
	anchor := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	list, err := p.Occurrences(anchor, 50, nil)
	if err != nil {
		t.Fatalf("occurrences failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected pattern count to bind, got %d occurrences", len(list))
	}
}

func TestOccurrencesRestartable(t *testing.T) {
	p := RecurrencePattern{Frequency: FrequencyMonthly, Interval: 1, DayOfMonth: 31}
	anchor := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	first, err := p.Occurrences(anchor, 6, nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := p.Occurrences(anchor, 6, nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("occurrence %d differs: %s vs %s", i, first[i].Format(time.RFC3339), second[i].Format(time.RFC3339))
		}
	}
}

func TestOccurrencesRejectsNonPositiveBound(t *testing.T) {
	p := RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}
	if _, err := p.Occurrences(time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), 0, nil); !errors.Is(err, ErrInvalidOccurrenceBound) {
		t.Fatalf("expected ErrInvalidOccurrenceBound, got %v", err)
	}
}

func TestOccurrencesFailFastOnInvalidPattern(t *testing.T) {
	p := RecurrencePattern{Frequency: FrequencyDaily, Interval: 0}
	list, err := p.Occurrences(time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC), 5, nil)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if list != nil {
		t.Fatalf("expected no partial results, got %v", list)
	}
}
