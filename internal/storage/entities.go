package storage

import "time"

// Schedule is a recurring-task schedule record. The recurrence pattern is
// embedded as primitive columns; days_of_week carries a JSON integer array
// in a scalar TEXT field.
type Schedule struct {
	ID              string
	Title           string
	Notes           string
	Frequency       string
	IntervalValue   int
	DaysOfWeek      string // JSON array, e.g. "[1,5]"
	DayOfMonth      int
	MonthOfYear     int
	EndDate         *time.Time
	OccurrenceCount int
	SpawnedCount    int
	NextDueAt       time.Time
	Enabled         bool
	CreatedAt       time.Time
}

// Task is a concrete instance spawned from a schedule for one occurrence.
type Task struct {
	ID          string
	ScheduleID  string
	Title       string
	Notes       string
	State       string
	Priority    string
	DueAt       time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type ScheduleListFilter struct {
	Enabled *bool
	Limit   int
	Offset  int
}

type TaskListFilter struct {
	ScheduleID string
	State      string
	Limit      int
	Offset     int
}
