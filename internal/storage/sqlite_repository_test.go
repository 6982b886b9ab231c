package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "recurd-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func TestScheduleCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	due := parseRFC3339(t, "2026-02-10T09:00:00Z")
	end := parseRFC3339(t, "2026-06-30T23:59:00Z")

	sched := Schedule{
		ID:            "sched-1",
		Title:         "Water the plants",
		Notes:         "Kitchen and balcony",
		Frequency:     "weekly",
		IntervalValue: 1,
		DaysOfWeek:    "[1,5]",
		EndDate:       &end,
		NextDueAt:     due,
		Enabled:       true,
		CreatedAt:     now,
	}
	if err := repo.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	got, err := repo.GetSchedule(ctx, sched.ID)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if got.Frequency != "weekly" || got.DaysOfWeek != "[1,5]" {
		t.Fatalf("unexpected schedule: %#v", got)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Fatalf("unexpected end date: %v", got.EndDate)
	}

	sched.IntervalValue = 2
	sched.Enabled = false
	if err := repo.UpdateSchedule(ctx, sched); err != nil {
		t.Fatalf("update schedule: %v", err)
	}

	disabled := false
	list, err := repo.ListSchedules(ctx, ScheduleListFilter{Enabled: &disabled})
	if err != nil {
		t.Fatalf("list schedules: %v", err)
	}
	if len(list) != 1 || list[0].IntervalValue != 2 {
		t.Fatalf("unexpected schedule list: %#v", list)
	}

	if err := repo.DeleteSchedule(ctx, sched.ID); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}
	_, err = repo.GetSchedule(ctx, sched.ID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestListDueSchedules(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")

	insert := func(id string, due time.Time, enabled bool) {
		t.Helper()
		if err := repo.CreateSchedule(ctx, Schedule{
			ID:            id,
			Title:         id,
			Frequency:     "daily",
			IntervalValue: 1,
			DaysOfWeek:    "[]",
			NextDueAt:     due,
			Enabled:       enabled,
			CreatedAt:     now,
		}); err != nil {
			t.Fatalf("create schedule %s: %v", id, err)
		}
	}
	insert("due-past", now.Add(-time.Hour), true)
	insert("due-now", now, true)
	insert("due-future", now.Add(time.Hour), true)
	insert("due-disabled", now.Add(-time.Hour), false)

	due, err := repo.ListDueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 || due[0].ID != "due-past" || due[1].ID != "due-now" {
		t.Fatalf("unexpected due list: %#v", due)
	}
}

func TestListDueSchedulesSubsecondNow(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	due := parseRFC3339(t, "2026-02-09T09:00:00Z")

	if err := repo.CreateSchedule(ctx, Schedule{
		ID:            "due-whole-second",
		Title:         "Whole second",
		Frequency:     "daily",
		IntervalValue: 1,
		DaysOfWeek:    "[]",
		NextDueAt:     due,
		Enabled:       true,
		CreatedAt:     due,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	// A wall-clock "now" carries sub-second precision; the stored text
	// comparison must still see the whole-second due time as past.
	list, err := repo.ListDueSchedules(ctx, due.Add(500*time.Millisecond))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(list) != 1 || list[0].ID != "due-whole-second" {
		t.Fatalf("unexpected due list: %#v", list)
	}
	if !list[0].NextDueAt.Equal(due) {
		t.Fatalf("unexpected next due: %v", list[0].NextDueAt)
	}
}

func TestTaskCRUDAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")
	due := parseRFC3339(t, "2026-02-10T09:00:00Z")

	sched := Schedule{
		ID:            "sched-task",
		Title:         "Weekly review",
		Frequency:     "weekly",
		IntervalValue: 1,
		DaysOfWeek:    "[]",
		NextDueAt:     due,
		Enabled:       true,
		CreatedAt:     now,
	}
	if err := repo.CreateSchedule(ctx, sched); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	task := Task{
		ID:         "task-1",
		ScheduleID: sched.ID,
		Title:      "Weekly review",
		State:      "Pending",
		Priority:   "Medium",
		DueAt:      due,
		CreatedAt:  now,
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ScheduleID != sched.ID || !got.DueAt.Equal(due) {
		t.Fatalf("unexpected task: %#v", got)
	}

	completed := due.Add(2 * time.Hour)
	task.State = "Done"
	task.CompletedAt = &completed
	if err := repo.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	list, err := repo.ListTasks(ctx, TaskListFilter{ScheduleID: sched.ID, State: "Done"})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(list) != 1 || list[0].CompletedAt == nil {
		t.Fatalf("unexpected task list: %#v", list)
	}

	if err := repo.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	_, err = repo.GetTask(ctx, task.ID)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteScheduleCascadesTasks(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := parseRFC3339(t, "2026-02-09T12:00:00Z")

	if err := repo.CreateSchedule(ctx, Schedule{
		ID:            "sched-cascade",
		Title:         "Cascade",
		Frequency:     "daily",
		IntervalValue: 1,
		DaysOfWeek:    "[]",
		NextDueAt:     now,
		Enabled:       true,
		CreatedAt:     now,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if err := repo.CreateTask(ctx, Task{
		ID:         "task-cascade",
		ScheduleID: "sched-cascade",
		Title:      "Cascade",
		State:      "Pending",
		Priority:   "Low",
		DueAt:      now,
		CreatedAt:  now,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := repo.DeleteSchedule(ctx, "sched-cascade"); err != nil {
		t.Fatalf("delete schedule: %v", err)
	}
	if _, err := repo.GetTask(ctx, "task-cascade"); err != ErrNotFound {
		t.Fatalf("expected cascade delete, got: %v", err)
	}
}
