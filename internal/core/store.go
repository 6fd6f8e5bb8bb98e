package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStore task persistence on top of DatabaseManager
type TaskStore struct {
	dbManager *DatabaseManager
	now       func() time.Time
}

// NewTaskStore wraps an open database.
func NewTaskStore(mgr *DatabaseManager) *TaskStore {
	return &TaskStore{dbManager: mgr, now: time.Now}
}

// NewTaskStoreForDataDir opens (or reuses) the sqlite store of a data directory.
func NewTaskStoreForDataDir(dataDir string) (*TaskStore, error) {
	mgr, err := GetDBForDataDir(dataDir)
	if err != nil {
		return nil, err
	}
	return NewTaskStore(mgr), nil
}

// Close releases the underlying connection.
func (s *TaskStore) Close() error {
	return s.dbManager.Close()
}

const taskColumns = `seq, id, text, completed, archived, time_slot, due_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t    Task
		slot sql.NullString
		date sql.NullString
	)
	err := row.Scan(&t.Seq, &t.ID, &t.Text, &t.Completed, &t.Archived, &slot, &date, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	t.TimeSlot = TimeSlot(slot.String)
	t.Date = date.String
	return t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateTask inserts a new incomplete task. date is YYYY-MM-DD or empty.
func (s *TaskStore) CreateTask(ctx context.Context, text, date string, slot TimeSlot) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, ErrEmptyText
	}
	if _, ok := ParseTimeSlot(string(slot)); !ok {
		return Task{}, fmt.Errorf("invalid time slot %q", slot)
	}
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			return Task{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
	}

	now := s.now().UTC()
	id := uuid.NewString()
	_, err := s.dbManager.Exec(ctx,
		`INSERT INTO tasks (id, text, completed, archived, time_slot, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, text, false, false, nullable(string(slot)), nullable(date), now, now,
	)
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask loads one task by id, archived or not.
func (s *TaskStore) GetTask(ctx context.Context, id string) (Task, error) {
	row := s.dbManager.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, err
}

// ListActiveTasks returns every non-archived task in insertion order.
func (s *TaskStore) ListActiveTasks(ctx context.Context) ([]Task, error) {
	return s.ListTasks(ctx, false)
}

// ListTasks returns tasks in insertion order, optionally including archived ones.
func (s *TaskStore) ListTasks(ctx context.Context, includeArchived bool) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []interface{}
	if !includeArchived {
		query += ` WHERE archived = ?`
		args = append(args, false)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.dbManager.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SetCompleted sets (not toggles) the completed flag. Reopening an archived task fails.
func (s *TaskStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !completed && t.Archived {
		return fmt.Errorf("reopen %q: %w", t.Text, ErrArchived)
	}
	if t.Completed == completed {
		return nil
	}
	_, err = s.dbManager.Exec(ctx,
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ?`,
		completed, s.now().UTC(), id,
	)
	return err
}

// SetArchived archives a completed task; incomplete tasks are rejected untouched.
func (s *TaskStore) SetArchived(ctx context.Context, id string) error {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !t.Completed {
		return fmt.Errorf("archive %q: %w", t.Text, ErrNotCompleted)
	}
	if t.Archived {
		return nil
	}
	res, err := s.dbManager.Exec(ctx,
		`UPDATE tasks SET archived = ?, updated_at = ? WHERE id = ? AND completed = ?`,
		true, s.now().UTC(), id, true,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// reopened between read and write
		return fmt.Errorf("archive %q: %w", t.Text, ErrNotCompleted)
	}
	return nil
}

// SetTimeSlot assigns or clears (SlotNone) the slot of a non-archived task.
func (s *TaskStore) SetTimeSlot(ctx context.Context, id string, slot TimeSlot) error {
	if _, ok := ParseTimeSlot(string(slot)); !ok {
		return fmt.Errorf("invalid time slot %q", slot)
	}
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.Archived {
		return fmt.Errorf("reschedule %q: %w", t.Text, ErrArchived)
	}
	_, err = s.dbManager.Exec(ctx,
		`UPDATE tasks SET time_slot = ?, updated_at = ? WHERE id = ?`,
		nullable(string(slot)), s.now().UTC(), id,
	)
	return err
}
