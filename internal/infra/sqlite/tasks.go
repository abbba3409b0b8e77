package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stride-app/stride/internal/domain"
)

const taskColumns = `id, owner, title, description, completed, due_date, priority, created_at, start_time, end_time`

// ─── Task Repository ────────────────────────────────────────────────────────

// CreateTask inserts a new task. Completed is always stored false.
func (d *DB) CreateTask(ctx context.Context, t domain.Task) error {
	t, err := domain.NormalizeTask(t)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = d.now()
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.Title, t.Description, nullDate(t.DueDate), string(t.Priority),
		t.CreatedAt.UnixMilli(), nullStr(t.StartTime), nullStr(t.EndTime),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task owned by owner.
func (d *DB) GetTask(ctx context.Context, id, owner string) (*domain.Task, error) {
	return getTask(ctx, d.db, id, owner)
}

func getTask(ctx context.Context, q querier, id, owner string) (*domain.Task, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner = ?`, id, owner,
	)
	return scanTask(row)
}

func setCompleted(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `UPDATE tasks SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return expectOne(res, domain.ErrTaskNotFound)
}

// ListTasks returns owner's tasks, open ones first, newest first.
func (d *DB) ListTasks(ctx context.Context, owner string, f domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = ?`
	args := []any{owner}
	if f.DueDate != nil {
		query += ` AND due_date = ?`
		args = append(args, f.DueDate.String())
	}
	query += ` ORDER BY completed ASC, created_at DESC, rowid DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies the patch and returns the updated task.
func (d *DB) UpdateTask(ctx context.Context, id, owner string, p domain.TaskPatch) (*domain.Task, error) {
	var sets []string
	var args []any

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*p.Priority))
	}
	switch {
	case p.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case p.DueDate != nil:
		sets = append(sets, "due_date = ?")
		args = append(args, p.DueDate.String())
	}
	switch {
	case p.ClearStartTime:
		sets = append(sets, "start_time = NULL")
	case p.StartTime != nil:
		sets = append(sets, "start_time = ?")
		args = append(args, *p.StartTime)
	}
	switch {
	case p.ClearEndTime:
		sets = append(sets, "end_time = NULL")
	case p.EndTime != nil:
		sets = append(sets, "end_time = ?")
		args = append(args, *p.EndTime)
	}

	if len(sets) > 0 {
		args = append(args, id, owner)
		res, err := d.db.ExecContext(ctx,
			`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner = ?`, args...,
		)
		if err != nil {
			return nil, fmt.Errorf("update task: %w", err)
		}
		if err := expectOne(res, domain.ErrTaskNotFound); err != nil {
			return nil, err
		}
	}
	return d.GetTask(ctx, id, owner)
}

// DeleteTask removes a task.
func (d *DB) DeleteTask(ctx context.Context, id, owner string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrTaskNotFound)
}

func scanTask(s scanner) (*domain.Task, error) {
	var t domain.Task
	var description, due, start, end sql.NullString
	var priority string
	var createdAt int64

	err := s.Scan(&t.ID, &t.Owner, &t.Title, &description, &t.Completed,
		&due, &priority, &createdAt, &start, &end)
	if isNoRows(err) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Priority = domain.Priority(priority)
	t.CreatedAt = time.UnixMilli(createdAt)
	t.StartTime = strPtr(start)
	t.EndTime = strPtr(end)
	if t.DueDate, err = scanDate(due); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	return &t, nil
}
