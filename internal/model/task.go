package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidState    = errors.New("model: invalid task state")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

type TaskState string

const (
	TaskStatePending TaskState = "Pending"
	TaskStateDone    TaskState = "Done"
	TaskStateSkipped TaskState = "Skipped"
)

func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePending, TaskStateDone, TaskStateSkipped:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is one concrete instance spawned from a recurring schedule for a
// single occurrence date.
type Task struct {
	ID          string
	ScheduleID  string
	Title       string
	Notes       string
	State       TaskState
	Priority    Priority
	DueAt       time.Time
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.State.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, t.State)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.DueAt.IsZero() {
		return errors.New("model: task due_at is required")
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.State == TaskStateDone && t.CompletedAt == nil {
		return errors.New("model: completed_at is required when task state is Done")
	}
	if t.State != TaskStateDone && t.CompletedAt != nil {
		return errors.New("model: completed_at must be nil when task state is not Done")
	}
	return nil
}
