package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stride-app/stride/internal/domain"
)

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// CreateUser inserts the user and its default profile in one transaction.
func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: user id and name are required", domain.ErrInvalidInput)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, created_at) VALUES ($1, $2, $3)`,
			u.ID, u.Name, u.CreatedAt,
		)
		if isUniqueViolation(err) {
			return domain.ErrUserExists
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		p := domain.NewProfile(u.ID)
		_, err = tx.Exec(ctx,
			`INSERT INTO profiles (owner, xp, level, current_streak) VALUES ($1, $2, $3, $4)`,
			p.Owner, p.XP, p.Level, p.CurrentStreak,
		)
		if err != nil {
			return fmt.Errorf("failed to provision profile: %w", err)
		}
		return nil
	})
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT id, name, created_at FROM users WHERE id = $1`, id))
}

// GetUserByName returns a user by name.
func (s *Store) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT id, name, created_at FROM users WHERE name = $1`, name))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.CreatedAt)
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Profiles
// ─────────────────────────────────────────────────────────────────────────────

const profileSelect = `SELECT owner, xp, level, current_streak, last_completion_date, version FROM profiles WHERE owner = $1`

// GetProfile reads a profile without locking it.
func (s *Store) GetProfile(ctx context.Context, owner string) (*domain.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, profileSelect, owner))
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var last *time.Time
	err := row.Scan(&p.Owner, &p.XP, &p.Level, &p.CurrentStreak, &last, &p.Version)
	if isNoRows(err) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	p.LastCompletionDate = dateFromTime(last)
	return &p, nil
}

func saveProfile(ctx context.Context, q querier, p *domain.Profile) error {
	tag, err := q.Exec(ctx, `
		UPDATE profiles
		SET xp = $1, level = $2, current_streak = $3, last_completion_date = $4::date,
		    version = version + 1
		WHERE owner = $5 AND version = $6`,
		p.XP, p.Level, p.CurrentStreak, dateArg(p.LastCompletionDate), p.Owner, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := scanProfile(q.QueryRow(ctx, profileSelect, p.Owner)); err != nil {
			return err
		}
		return domain.ErrProfileConflict
	}
	p.Version++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transactions
// ─────────────────────────────────────────────────────────────────────────────

// InTx runs fn in a read-committed transaction. Profiles read through the
// transaction are row-locked until it ends.
func (s *Store) InTx(ctx context.Context, fn func(domain.CompletionStore) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txStore{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit error: %w", err)
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (t txStore) GetTask(ctx context.Context, id, owner string) (*domain.Task, error) {
	return scanTask(t.tx.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner = $2 FOR UPDATE`, id, owner))
}

func (t txStore) SetCompleted(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE tasks SET completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (t txStore) GetProfile(ctx context.Context, owner string) (*domain.Profile, error) {
	return scanProfile(t.tx.QueryRow(ctx, profileSelect+` FOR UPDATE`, owner))
}

func (t txStore) SaveProfile(ctx context.Context, p *domain.Profile) error {
	return saveProfile(ctx, t.tx, p)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tasks
// ─────────────────────────────────────────────────────────────────────────────

const taskColumns = `id, owner, title, description, completed, due_date, priority, created_at, start_time, end_time`

// CreateTask inserts a task.
func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	t, err := domain.NormalizeTask(t)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, FALSE, $5::date, $6, $7, $8, $9)`,
		t.ID, t.Owner, t.Title, t.Description, dateArg(t.DueDate), string(t.Priority),
		t.CreatedAt, t.StartTime, t.EndTime,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: task %s already exists", domain.ErrInvalidInput, t.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask returns owner's task.
func (s *Store) GetTask(ctx context.Context, id, owner string) (*domain.Task, error) {
	return scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner = $2`, id, owner))
}

// ListTasks returns owner's tasks, open first, newest first.
func (s *Store) ListTasks(ctx context.Context, owner string, f domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = $1`
	args := []any{owner}
	if f.DueDate != nil {
		query += ` AND due_date = $2::date`
		args = append(args, f.DueDate.String())
	}
	query += ` ORDER BY completed ASC, created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
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

// UpdateTask applies p and returns the updated task.
func (s *Store) UpdateTask(ctx context.Context, id, owner string, p domain.TaskPatch) (*domain.Task, error) {
	var sets []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Title != nil {
		sets = append(sets, "title = "+arg(*p.Title))
	}
	if p.Description != nil {
		sets = append(sets, "description = "+arg(*p.Description))
	}
	if p.Priority != nil {
		sets = append(sets, "priority = "+arg(string(*p.Priority)))
	}
	switch {
	case p.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case p.DueDate != nil:
		sets = append(sets, "due_date = "+arg(p.DueDate.String())+"::date")
	}
	switch {
	case p.ClearStartTime:
		sets = append(sets, "start_time = NULL")
	case p.StartTime != nil:
		sets = append(sets, "start_time = "+arg(*p.StartTime))
	}
	switch {
	case p.ClearEndTime:
		sets = append(sets, "end_time = NULL")
	case p.EndTime != nil:
		sets = append(sets, "end_time = "+arg(*p.EndTime))
	}

	if len(sets) == 0 {
		return s.GetTask(ctx, id, owner)
	}

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + arg(id) + ` AND owner = ` + arg(owner) +
		` RETURNING ` + taskColumns
	return scanTask(s.pool.QueryRow(ctx, query, args...))
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id, owner string) error {
	return s.deleteOwned(ctx, "tasks", id, owner, domain.ErrTaskNotFound)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var due *time.Time
	var priority string
	err := row.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Completed,
		&due, &priority, &t.CreatedAt, &t.StartTime, &t.EndTime)
	if isNoRows(err) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.DueDate = dateFromTime(due)
	t.Priority = domain.Priority(strings.TrimSpace(priority))
	return &t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily Notes
// ─────────────────────────────────────────────────────────────────────────────

// UpsertNote creates or replaces owner's note for day.
func (s *Store) UpsertNote(ctx context.Context, owner string, day domain.Date, content string) (*domain.DailyNote, error) {
	return scanNote(s.pool.QueryRow(ctx, `
		INSERT INTO daily_notes (id, owner, date, content) VALUES ($1, $2, $3::date, $4)
		ON CONFLICT (owner, date) DO UPDATE SET content = EXCLUDED.content
		RETURNING id, owner, date, content`,
		uuid.NewString(), owner, day.String(), content,
	))
}

// ListNotes returns owner's notes for day.
func (s *Store) ListNotes(ctx context.Context, owner string, day domain.Date) ([]domain.DailyNote, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE owner = $1 AND date = $2::date`,
		owner, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.DailyNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// GetNote returns one of owner's notes.
func (s *Store) GetNote(ctx context.Context, id, owner string) (*domain.DailyNote, error) {
	return scanNote(s.pool.QueryRow(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE id = $1 AND owner = $2`, id, owner))
}

// UpdateNote replaces a note's content.
func (s *Store) UpdateNote(ctx context.Context, id, owner, content string) (*domain.DailyNote, error) {
	n, err := scanNote(s.pool.QueryRow(ctx, `
		UPDATE daily_notes SET content = $1 WHERE id = $2 AND owner = $3
		RETURNING id, owner, date, content`, content, id, owner))
	if err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id, owner string) error {
	return s.deleteOwned(ctx, "daily_notes", id, owner, domain.ErrNoteNotFound)
}

func scanNote(row pgx.Row) (*domain.DailyNote, error) {
	var n domain.DailyNote
	var day time.Time
	err := row.Scan(&n.ID, &n.Owner, &day, &n.Content)
	if isNoRows(err) {
		return nil, domain.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}
	n.Date = domain.DateOf(day)
	return &n, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Focus Items
// ─────────────────────────────────────────────────────────────────────────────

// CreateFocusItem inserts a focus item.
func (s *Store) CreateFocusItem(ctx context.Context, f domain.FocusItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO focus_items (id, owner, date, text) VALUES ($1, $2, $3::date, $4)`,
		f.ID, f.Owner, f.Date.String(), f.Text)
	if err != nil {
		return fmt.Errorf("failed to create focus item: %w", err)
	}
	return nil
}

// ListFocusItems returns owner's focus items for day, oldest first.
func (s *Store) ListFocusItems(ctx context.Context, owner string, day domain.Date) ([]domain.FocusItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, date, text FROM focus_items
		WHERE owner = $1 AND date = $2::date ORDER BY created_at, id`,
		owner, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list focus items: %w", err)
	}
	defer rows.Close()

	var items []domain.FocusItem
	for rows.Next() {
		f, err := scanFocus(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// GetFocusItem returns one of owner's focus items.
func (s *Store) GetFocusItem(ctx context.Context, id, owner string) (*domain.FocusItem, error) {
	return scanFocus(s.pool.QueryRow(ctx,
		`SELECT id, owner, date, text FROM focus_items WHERE id = $1 AND owner = $2`, id, owner))
}

// UpdateFocusItem replaces a focus item's text.
func (s *Store) UpdateFocusItem(ctx context.Context, id, owner, text string) (*domain.FocusItem, error) {
	return scanFocus(s.pool.QueryRow(ctx, `
		UPDATE focus_items SET text = $1 WHERE id = $2 AND owner = $3
		RETURNING id, owner, date, text`, text, id, owner))
}

// DeleteFocusItem removes a focus item.
func (s *Store) DeleteFocusItem(ctx context.Context, id, owner string) error {
	return s.deleteOwned(ctx, "focus_items", id, owner, domain.ErrFocusNotFound)
}

func scanFocus(row pgx.Row) (*domain.FocusItem, error) {
	var f domain.FocusItem
	var day time.Time
	err := row.Scan(&f.ID, &f.Owner, &day, &f.Text)
	if isNoRows(err) {
		return nil, domain.ErrFocusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan focus item: %w", err)
	}
	f.Date = domain.DateOf(day)
	return &f, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Schedule Events
// ─────────────────────────────────────────────────────────────────────────────

// CreateEvent inserts a schedule event.
func (s *Store) CreateEvent(ctx context.Context, e domain.ScheduleEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_events (id, owner, date, start_time, end_time, title)
		VALUES ($1, $2, $3::date, $4, $5, $6)`,
		e.ID, e.Owner, e.Date.String(), e.StartTime, e.EndTime, e.Title)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// ListEvents returns owner's events for day by start time.
func (s *Store) ListEvents(ctx context.Context, owner string, day domain.Date) ([]domain.ScheduleEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner, date, start_time, end_time, title FROM schedule_events
		WHERE owner = $1 AND date = $2::date ORDER BY start_time ASC`,
		owner, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.ScheduleEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

const eventColumns = `id, owner, date, start_time, end_time, title`

// GetEvent returns one of owner's schedule events.
func (s *Store) GetEvent(ctx context.Context, id, owner string) (*domain.ScheduleEvent, error) {
	return scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM schedule_events WHERE id = $1 AND owner = $2`, id, owner))
}

// UpdateEvent applies p to one of owner's events.
func (s *Store) UpdateEvent(ctx context.Context, id, owner string, p domain.EventPatch) (*domain.ScheduleEvent, error) {
	var sets []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Title != nil {
		sets = append(sets, "title = "+arg(*p.Title))
	}
	if p.StartTime != nil {
		sets = append(sets, "start_time = "+arg(*p.StartTime))
	}
	switch {
	case p.ClearEndTime:
		sets = append(sets, "end_time = NULL")
	case p.EndTime != nil:
		sets = append(sets, "end_time = "+arg(*p.EndTime))
	}

	if len(sets) == 0 {
		return s.GetEvent(ctx, id, owner)
	}

	query := `UPDATE schedule_events SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + arg(id) + ` AND owner = ` + arg(owner) +
		` RETURNING ` + eventColumns
	return scanEvent(s.pool.QueryRow(ctx, query, args...))
}

// DeleteEvent removes a schedule event.
func (s *Store) DeleteEvent(ctx context.Context, id, owner string) error {
	return s.deleteOwned(ctx, "schedule_events", id, owner, domain.ErrEventNotFound)
}

func scanEvent(row pgx.Row) (*domain.ScheduleEvent, error) {
	var e domain.ScheduleEvent
	var day time.Time
	err := row.Scan(&e.ID, &e.Owner, &day, &e.StartTime, &e.EndTime, &e.Title)
	if isNoRows(err) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	e.Date = domain.DateOf(day)
	return &e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// deleteOwned deletes one row of table; table is always a constant.
func (s *Store) deleteOwned(ctx context.Context, table, id, owner string, notFound error) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// dateArg encodes d for a $n::date placeholder.
func dateArg(d *domain.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func dateFromTime(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}

var _ domain.Store = (*Store)(nil)
