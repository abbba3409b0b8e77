package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stride-app/stride/internal/domain"
)

// InTx runs fn in one immediate transaction. fn's error rolls everything
// back and is returned as is.
func (d *DB) InTx(ctx context.Context, fn func(domain.CompletionStore) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(txStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txStore is the CompletionStore view of an open transaction.
type txStore struct {
	tx *sql.Tx
}

func (s txStore) GetTask(ctx context.Context, id, owner string) (*domain.Task, error) {
	return getTask(ctx, s.tx, id, owner)
}

func (s txStore) SetCompleted(ctx context.Context, id string) error {
	return setCompleted(ctx, s.tx, id)
}

func (s txStore) GetProfile(ctx context.Context, owner string) (*domain.Profile, error) {
	return getProfile(ctx, s.tx, owner)
}

func (s txStore) SaveProfile(ctx context.Context, p *domain.Profile) error {
	return saveProfile(ctx, s.tx, p)
}

var _ domain.Store = (*DB)(nil)
