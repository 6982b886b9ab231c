package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sandeepkv93/recurd/internal/model"
	"github.com/sandeepkv93/recurd/internal/storage"
)

// Dispatcher advances due recurring schedules: for every schedule whose
// next_due_at has passed it spawns one task instance, asks the pattern
// model for the following occurrence, and persists the moved due date.
// The dispatcher owns the clock; the pattern model never reads one.
type Dispatcher struct {
	repo storage.Repository

	// NewID generates ids for spawned tasks. Replaceable in tests.
	NewID func() string
}

func NewDispatcher(repo storage.Repository) *Dispatcher {
	return &Dispatcher{repo: repo, NewID: randomID}
}

type ScheduleFailure struct {
	ScheduleID string
	Err        error
}

// AdvanceResult reports one dispatch batch. Rearmed carries the new due
// events for schedules that remain enabled so the caller can feed them
// back into the engine.
type AdvanceResult struct {
	Spawned  []storage.Task
	Rearmed  []ScheduleDueEvent
	Disabled []string
	Failures []ScheduleFailure
}

// Prime arms the engine with every enabled schedule's stored due date.
func (d *Dispatcher) Prime(ctx context.Context, engine *Engine) error {
	enabled := true
	schedules, err := d.repo.ListSchedules(ctx, storage.ScheduleListFilter{Enabled: &enabled})
	if err != nil {
		return fmt.Errorf("list enabled schedules: %w", err)
	}
	for _, s := range schedules {
		if err := engine.Arm(ScheduleDueEvent{ScheduleID: s.ID, Title: s.Title, DueAt: s.NextDueAt}); err != nil {
			return fmt.Errorf("arm schedule %s: %w", s.ID, err)
		}
	}
	return nil
}

// AdvanceDue processes every schedule due at or before now. Failures are
// isolated per record: one bad schedule lands in Failures and the rest of
// the batch proceeds.
func (d *Dispatcher) AdvanceDue(ctx context.Context, now time.Time) (AdvanceResult, error) {
	var result AdvanceResult

	due, err := d.repo.ListDueSchedules(ctx, now)
	if err != nil {
		return result, fmt.Errorf("list due schedules: %w", err)
	}

	for _, s := range due {
		spawned, event, disabled, advErr := d.advanceOne(ctx, s, now)
		if advErr != nil {
			result.Failures = append(result.Failures, ScheduleFailure{ScheduleID: s.ID, Err: advErr})
			continue
		}
		if spawned != nil {
			result.Spawned = append(result.Spawned, *spawned)
		}
		if disabled {
			result.Disabled = append(result.Disabled, s.ID)
		} else if event != nil {
			result.Rearmed = append(result.Rearmed, *event)
		}
	}
	return result, nil
}

func (d *Dispatcher) advanceOne(ctx context.Context, s storage.Schedule, now time.Time) (*storage.Task, *ScheduleDueEvent, bool, error) {
	pattern := patternFromSchedule(s)

	// A schedule past its own end conditions just gets switched off.
	if s.OccurrenceCount > 0 && s.SpawnedCount >= s.OccurrenceCount ||
		s.EndDate != nil && s.NextDueAt.After(*s.EndDate) {
		s.Enabled = false
		if err := d.repo.UpdateSchedule(ctx, s); err != nil {
			return nil, nil, false, fmt.Errorf("disable schedule: %w", err)
		}
		return nil, nil, true, nil
	}

	next, err := pattern.NextAfter(s.NextDueAt)
	if err != nil {
		return nil, nil, false, fmt.Errorf("compute next occurrence: %w", err)
	}
	// Skip occurrences missed while the process was down; only the
	// current due date spawns an instance.
	for !next.After(now) {
		skipped, skipErr := pattern.NextAfter(next)
		if skipErr != nil {
			return nil, nil, false, fmt.Errorf("catch up occurrence: %w", skipErr)
		}
		next = skipped
	}

	instance := model.Task{
		ID:         d.NewID(),
		ScheduleID: s.ID,
		Title:      s.Title,
		Notes:      s.Notes,
		State:      model.TaskStatePending,
		Priority:   model.PriorityMedium,
		DueAt:      s.NextDueAt,
		CreatedAt:  now,
	}
	if err := instance.Validate(); err != nil {
		return nil, nil, false, fmt.Errorf("build task instance: %w", err)
	}
	task := storage.Task{
		ID:         instance.ID,
		ScheduleID: instance.ScheduleID,
		Title:      instance.Title,
		Notes:      instance.Notes,
		State:      string(instance.State),
		Priority:   string(instance.Priority),
		DueAt:      instance.DueAt,
		CreatedAt:  instance.CreatedAt,
	}
	if err := d.repo.CreateTask(ctx, task); err != nil {
		return nil, nil, false, fmt.Errorf("spawn task: %w", err)
	}

	s.SpawnedCount++
	s.NextDueAt = next
	finished := s.OccurrenceCount > 0 && s.SpawnedCount >= s.OccurrenceCount ||
		s.EndDate != nil && next.After(*s.EndDate)
	s.Enabled = !finished
	if err := d.repo.UpdateSchedule(ctx, s); err != nil {
		return nil, nil, false, fmt.Errorf("persist due date: %w", err)
	}

	if finished {
		return &task, nil, true, nil
	}
	return &task, &ScheduleDueEvent{ScheduleID: s.ID, Title: s.Title, DueAt: next}, false, nil
}

// patternFromSchedule decodes the stored pattern columns. A malformed
// days_of_week payload degrades to "no specific days" so one bad row never
// stalls a dispatch batch.
func patternFromSchedule(s storage.Schedule) model.RecurrencePattern {
	days, err := model.DecodeDaysOfWeek(s.DaysOfWeek)
	if err != nil {
		days = nil
	}
	return model.RecurrencePattern{
		Frequency:   model.Frequency(s.Frequency),
		Interval:    s.IntervalValue,
		DaysOfWeek:  days,
		DayOfMonth:  s.DayOfMonth,
		MonthOfYear: s.MonthOfYear,
		EndDate:     s.EndDate,
		Count:       s.OccurrenceCount,
	}
}

func randomID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("task-%d", time.Now().UnixNano())
	}
	return "task-" + hex.EncodeToString(buf)
}
