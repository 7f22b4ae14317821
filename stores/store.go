// Package stores defines the persistence contracts the auction engine runs
// against, plus a postgres (gorm) and an in-memory implementation.
//
// Every record carries a version. Upsert inserts when the version is zero and
// otherwise replaces the stored record only if its version still matches,
// bumping the version on success. A mismatch yields ErrVersionConflict so the
// caller can reload and retry instead of silently losing an update.
package stores

import (
	"context"
	"errors"

	"coin-task-desk/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrStatusMismatch  = errors.New("transaction status changed")
)

type ProfileStore interface {
	GetAll(ctx context.Context) ([]models.UserProfile, error)
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	Upsert(ctx context.Context, p *models.UserProfile) error
}

type TaskStore interface {
	GetAll(ctx context.Context) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Upsert(ctx context.Context, t *models.Task) error
	UpsertMany(ctx context.Context, tasks []*models.Task) error
}

type LedgerStore interface {
	Append(ctx context.Context, tx *models.Transaction) error
	GetAll(ctx context.Context) ([]models.Transaction, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	// UpdateStatus moves a transaction from one status to another and fails
	// with ErrStatusMismatch if it is no longer in the from status.
	UpdateStatus(ctx context.Context, id string, from, to models.TransactionStatus) error
}

// Store groups the three stores. WithinTx runs fn against a view whose writes
// either all land or none do; calling WithinTx on that view runs fn inline.
type Store interface {
	Profiles() ProfileStore
	Tasks() TaskStore
	Ledger() LedgerStore
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
