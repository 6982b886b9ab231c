package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Time columns are TEXT and compared lexicographically by SQLite, so
// writes use a fixed-width UTC layout: string order then matches time
// order. RFC3339Nano trims trailing zeros, which breaks the ordering
// (a whole-second "T09:00:00Z" sorts after "T09:00:00.5Z" because
// 'Z' > '.'). Reads still accept both forms.
const sqliteWriteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const scheduleColumns = `id, title, notes, frequency, interval_value, days_of_week, day_of_month, month_of_year, end_date, occurrence_count, spawned_count, next_due_at, enabled, created_at`

func (r *SQLiteRepository) CreateSchedule(ctx context.Context, in Schedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Title, in.Notes, in.Frequency, in.IntervalValue, in.DaysOfWeek,
		in.DayOfMonth, in.MonthOfYear, nullTime(in.EndDate), in.OccurrenceCount,
		in.SpawnedCount, mustTime(in.NextDueAt), boolInt(in.Enabled), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	item, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Schedule{}, ErrNotFound
		}
		return Schedule{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, in Schedule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET title = ?, notes = ?, frequency = ?, interval_value = ?, days_of_week = ?,
		    day_of_month = ?, month_of_year = ?, end_date = ?, occurrence_count = ?,
		    spawned_count = ?, next_due_at = ?, enabled = ?
		WHERE id = ?`,
		in.Title, in.Notes, in.Frequency, in.IntervalValue, in.DaysOfWeek,
		in.DayOfMonth, in.MonthOfYear, nullTime(in.EndDate), in.OccurrenceCount,
		in.SpawnedCount, mustTime(in.NextDueAt), boolInt(in.Enabled), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListSchedules(ctx context.Context, filter ScheduleListFilter) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	args := make([]any, 0, 3)
	if filter.Enabled != nil {
		query += ` WHERE enabled = ?`
		args = append(args, boolInt(*filter.Enabled))
	}
	query += ` ORDER BY next_due_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Schedule, 0)
	for rows.Next() {
		item, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListDueSchedules(ctx context.Context, now time.Time) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE enabled = 1 AND next_due_at <= ?
		ORDER BY next_due_at ASC`, mustTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Schedule, 0)
	for rows.Next() {
		item, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const taskColumns = `id, schedule_id, title, notes, state, priority, due_at, created_at, completed_at`

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.ScheduleID, in.Title, in.Notes, in.State, in.Priority,
		mustTime(in.DueAt), mustTime(in.CreatedAt), nullTime(in.CompletedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET schedule_id = ?, title = ?, notes = ?, state = ?, priority = ?, due_at = ?, completed_at = ?
		WHERE id = ?`,
		in.ScheduleID, in.Title, in.Notes, in.State, in.Priority,
		mustTime(in.DueAt), nullTime(in.CompletedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.ScheduleID != "" {
		clauses = append(clauses, "schedule_id = ?")
		args = append(args, filter.ScheduleID)
	}
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, filter.State)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY due_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteWriteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteWriteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(s scanner) (Schedule, error) {
	var out Schedule
	var end sql.NullString
	var nextDue string
	var enabled int
	var created string
	if err := s.Scan(&out.ID, &out.Title, &out.Notes, &out.Frequency, &out.IntervalValue,
		&out.DaysOfWeek, &out.DayOfMonth, &out.MonthOfYear, &end, &out.OccurrenceCount,
		&out.SpawnedCount, &nextDue, &enabled, &created); err != nil {
		return Schedule{}, err
	}
	endDate, err := parseNullableTime(end)
	if err != nil {
		return Schedule{}, err
	}
	nextDueAt, err := parseRequiredTime(nextDue)
	if err != nil {
		return Schedule{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Schedule{}, err
	}
	out.EndDate = endDate
	out.NextDueAt = nextDueAt
	out.Enabled = enabled == 1
	out.CreatedAt = createdAt
	return out, nil
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var due string
	var created string
	var completed sql.NullString
	if err := s.Scan(&out.ID, &out.ScheduleID, &out.Title, &out.Notes, &out.State, &out.Priority, &due, &created, &completed); err != nil {
		return Task{}, err
	}
	dueAt, err := parseRequiredTime(due)
	if err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return Task{}, err
	}
	out.DueAt = dueAt
	out.CreatedAt = createdAt
	out.CompletedAt = completedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
