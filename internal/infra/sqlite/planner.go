package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stride-app/stride/internal/domain"
)

// ─── Daily Notes ────────────────────────────────────────────────────────────

// UpsertNote creates or replaces owner's note for day.
func (d *DB) UpsertNote(ctx context.Context, owner string, day domain.Date, content string) (*domain.DailyNote, error) {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO daily_notes (id, owner, date, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner, date) DO UPDATE SET content=excluded.content`,
		uuid.NewString(), owner, day.String(), content,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert note: %w", err)
	}
	row := d.db.QueryRowContext(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE owner = ? AND date = ?`,
		owner, day.String(),
	)
	return scanNote(row)
}

// ListNotes returns owner's notes for day (zero or one).
func (d *DB) ListNotes(ctx context.Context, owner string, day domain.Date) ([]domain.DailyNote, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE owner = ? AND date = ?`,
		owner, day.String(),
	)
	if err != nil {
		return nil, err
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
func (d *DB) GetNote(ctx context.Context, id, owner string) (*domain.DailyNote, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE id = ? AND owner = ?`, id, owner,
	)
	return scanNote(row)
}

// UpdateNote replaces a note's content by id.
func (d *DB) UpdateNote(ctx context.Context, id, owner, content string) (*domain.DailyNote, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE daily_notes SET content = ? WHERE id = ? AND owner = ?`, content, id, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if err := expectOne(res, domain.ErrNoteNotFound); err != nil {
		return nil, err
	}
	row := d.db.QueryRowContext(ctx,
		`SELECT id, owner, date, content FROM daily_notes WHERE id = ?`, id,
	)
	return scanNote(row)
}

// DeleteNote removes a note.
func (d *DB) DeleteNote(ctx context.Context, id, owner string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM daily_notes WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrNoteNotFound)
}

func scanNote(s scanner) (*domain.DailyNote, error) {
	var n domain.DailyNote
	var day string
	var content sql.NullString
	err := s.Scan(&n.ID, &n.Owner, &day, &content)
	if isNoRows(err) {
		return nil, domain.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	if n.Date, err = domain.ParseDate(day); err != nil {
		return nil, err
	}
	n.Content = content.String
	return &n, nil
}

// ─── Focus Items ────────────────────────────────────────────────────────────

// CreateFocusItem inserts a focus item.
func (d *DB) CreateFocusItem(ctx context.Context, f domain.FocusItem) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO focus_items (id, owner, date, text) VALUES (?, ?, ?, ?)`,
		f.ID, f.Owner, f.Date.String(), f.Text,
	)
	if err != nil {
		return fmt.Errorf("insert focus item: %w", err)
	}
	return nil
}

// ListFocusItems returns owner's focus items for day in insertion order.
func (d *DB) ListFocusItems(ctx context.Context, owner string, day domain.Date) ([]domain.FocusItem, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, owner, date, text FROM focus_items WHERE owner = ? AND date = ? ORDER BY rowid`,
		owner, day.String(),
	)
	if err != nil {
		return nil, err
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
func (d *DB) GetFocusItem(ctx context.Context, id, owner string) (*domain.FocusItem, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, owner, date, text FROM focus_items WHERE id = ? AND owner = ?`, id, owner,
	)
	return scanFocus(row)
}

// UpdateFocusItem replaces a focus item's text.
func (d *DB) UpdateFocusItem(ctx context.Context, id, owner, text string) (*domain.FocusItem, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE focus_items SET text = ? WHERE id = ? AND owner = ?`, text, id, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("update focus item: %w", err)
	}
	if err := expectOne(res, domain.ErrFocusNotFound); err != nil {
		return nil, err
	}
	return d.GetFocusItem(ctx, id, owner)
}

// DeleteFocusItem removes a focus item.
func (d *DB) DeleteFocusItem(ctx context.Context, id, owner string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM focus_items WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrFocusNotFound)
}

func scanFocus(s scanner) (*domain.FocusItem, error) {
	var f domain.FocusItem
	var day string
	err := s.Scan(&f.ID, &f.Owner, &day, &f.Text)
	if isNoRows(err) {
		return nil, domain.ErrFocusNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.Date, err = domain.ParseDate(day); err != nil {
		return nil, err
	}
	return &f, nil
}

// ─── Schedule Events ────────────────────────────────────────────────────────

// CreateEvent inserts a schedule event.
func (d *DB) CreateEvent(ctx context.Context, e domain.ScheduleEvent) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO schedule_events (id, owner, date, start_time, end_time, title)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Owner, e.Date.String(), e.StartTime, nullStr(e.EndTime), e.Title,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns owner's events for day ordered by start time.
func (d *DB) ListEvents(ctx context.Context, owner string, day domain.Date) ([]domain.ScheduleEvent, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, owner, date, start_time, end_time, title
		 FROM schedule_events WHERE owner = ? AND date = ? ORDER BY start_time ASC`,
		owner, day.String(),
	)
	if err != nil {
		return nil, err
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

// GetEvent returns one of owner's schedule events.
func (d *DB) GetEvent(ctx context.Context, id, owner string) (*domain.ScheduleEvent, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, owner, date, start_time, end_time, title
		 FROM schedule_events WHERE id = ? AND owner = ?`, id, owner,
	)
	return scanEvent(row)
}

// UpdateEvent applies p to one of owner's events and returns the result.
func (d *DB) UpdateEvent(ctx context.Context, id, owner string, p domain.EventPatch) (*domain.ScheduleEvent, error) {
	var sets []string
	var args []any

	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.StartTime != nil {
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
			`UPDATE schedule_events SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner = ?`, args...,
		)
		if err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
		if err := expectOne(res, domain.ErrEventNotFound); err != nil {
			return nil, err
		}
	}
	return d.GetEvent(ctx, id, owner)
}

// DeleteEvent removes a schedule event.
func (d *DB) DeleteEvent(ctx context.Context, id, owner string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM schedule_events WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrEventNotFound)
}

func scanEvent(s scanner) (*domain.ScheduleEvent, error) {
	var e domain.ScheduleEvent
	var day string
	var end sql.NullString
	err := s.Scan(&e.ID, &e.Owner, &day, &e.StartTime, &end, &e.Title)
	if isNoRows(err) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.Date, err = domain.ParseDate(day); err != nil {
		return nil, err
	}
	e.EndTime = strPtr(end)
	return &e, nil
}
