package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stride-app/stride/internal/domain"
)

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser inserts the user and provisions its default profile in one
// transaction. Returns ErrUserExists on a duplicate id or name.
func (d *DB) CreateUser(ctx context.Context, u domain.User) error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: user id and name are required", domain.ErrInvalidInput)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.CreatedAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	p := domain.NewProfile(u.ID)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (owner, xp, level, current_streak, last_completion_date, version)
		 VALUES (?, ?, ?, ?, NULL, 0)`,
		p.Owner, p.XP, p.Level, p.CurrentStreak,
	)
	if err != nil {
		return fmt.Errorf("provision profile: %w", err)
	}

	return tx.Commit()
}

// GetUser retrieves a user by id.
func (d *DB) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByName retrieves a user by its unique name.
func (d *DB) GetUserByName(ctx context.Context, name string) (*domain.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM users WHERE name = ?`, name)
	return scanUser(row)
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var createdAt int64
	err := s.Scan(&u.ID, &u.Name, &createdAt)
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.UnixMilli(createdAt)
	return &u, nil
}

// ─── Profiles ───────────────────────────────────────────────────────────────

// GetProfile retrieves a user's profile outside any transaction.
func (d *DB) GetProfile(ctx context.Context, owner string) (*domain.Profile, error) {
	return getProfile(ctx, d.db, owner)
}

func getProfile(ctx context.Context, q querier, owner string) (*domain.Profile, error) {
	row := q.QueryRowContext(ctx,
		`SELECT owner, xp, level, current_streak, last_completion_date, version
		 FROM profiles WHERE owner = ?`, owner,
	)

	var p domain.Profile
	var last sql.NullString
	err := row.Scan(&p.Owner, &p.XP, &p.Level, &p.CurrentStreak, &last, &p.Version)
	if isNoRows(err) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.LastCompletionDate, err = scanDate(last); err != nil {
		return nil, fmt.Errorf("profile %s: %w", owner, err)
	}
	return &p, nil
}

// saveProfile writes p guarded by its version and bumps p.Version.
func saveProfile(ctx context.Context, q querier, p *domain.Profile) error {
	res, err := q.ExecContext(ctx,
		`UPDATE profiles
		 SET xp = ?, level = ?, current_streak = ?, last_completion_date = ?, version = version + 1
		 WHERE owner = ? AND version = ?`,
		p.XP, p.Level, p.CurrentStreak, nullDate(p.LastCompletionDate), p.Owner, p.Version,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := getProfile(ctx, q, p.Owner); err != nil {
			return err
		}
		return domain.ErrProfileConflict
	}
	p.Version++
	return nil
}
