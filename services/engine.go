// services/engine.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/stores"

	"github.com/google/uuid"
)

type EngineConfig struct {
	StartingBalance int64    // credited on first login
	AccessFee       int64    // coins charged per accounting interval
	AdminEmails     []string // profiles created with these emails are admins
	MaxRetries      int      // attempts per operation on version conflict
}

var DefaultEngineConfig = EngineConfig{
	StartingBalance: 10,
	AccessFee:       1,
	MaxRetries:      3,
}

// Engine implements bidding, award, expiry, settlement, access fees and
// ledger review on top of the three stores. It keeps no state between calls.
type Engine struct {
	store stores.Store
	cfg   EngineConfig
	guard FeeGuard
	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func WithFeeGuard(g FeeGuard) Option {
	return func(e *Engine) { e.guard = g }
}

func NewEngine(store stores.Store, cfg EngineConfig, opts ...Option) *Engine {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultEngineConfig.MaxRetries
	}
	if cfg.AccessFee < 1 {
		cfg.AccessFee = DefaultEngineConfig.AccessFee
	}
	e := &Engine{
		store: store,
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store for read-only collaborators.
func (e *Engine) Store() stores.Store {
	return e.store
}

// atomically runs fn in a store transaction, retrying on version conflicts.
// fn must reload everything it touches on each attempt.
func (e *Engine) atomically(ctx context.Context, op string, fn func(tx stores.Store) error) error {
	for attempt := 1; ; attempt++ {
		err := e.store.WithinTx(ctx, fn)
		if !errors.Is(err, stores.ErrVersionConflict) {
			return err
		}
		if attempt >= e.cfg.MaxRetries {
			return &Error{Kind: KindConflict, Op: op, Msg: "concurrent update, retry later", Err: err}
		}
		log.Printf("[ENGINE] %s: version conflict, retrying (attempt %d)", op, attempt+1)
	}
}

func (e *Engine) isAdminEmail(email string) bool {
	for _, a := range e.cfg.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return true
		}
	}
	return false
}

func (e *Engine) newTransaction(user *models.UserProfile, amount int64, typ models.TransactionType, status models.TransactionStatus, description string) *models.Transaction {
	now := e.now()
	return &models.Transaction{
		ID:          e.newID(),
		UserID:      user.ID,
		UserName:    user.Username,
		Date:        now.UTC().Format(time.RFC3339),
		Amount:      amount,
		Type:        typ,
		Description: description,
		Status:      status,
		RecordedAt:  now.UnixMilli(),
	}
}

func loadTask(ctx context.Context, tx stores.Store, op, id string) (*models.Task, error) {
	t, err := tx.Tasks().GetByID(ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, newError(KindNotFound, op, "task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load task %s: %w", op, id, err)
	}
	return t, nil
}

func loadProfile(ctx context.Context, tx stores.Store, op, id string) (*models.UserProfile, error) {
	p, err := tx.Profiles().GetByID(ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, newError(KindNotFound, op, "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load user %s: %w", op, id, err)
	}
	return p, nil
}

func loadTransaction(ctx context.Context, tx stores.Store, op, id string) (*models.Transaction, error) {
	t, err := tx.Ledger().GetByID(ctx, id)
	if errors.Is(err, stores.ErrNotFound) {
		return nil, newError(KindNotFound, op, "transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load transaction %s: %w", op, id, err)
	}
	return t, nil
}

func requireAdmin(ctx context.Context, tx stores.Store, op, actorID string) (*models.UserProfile, error) {
	actor, err := loadProfile(ctx, tx, op, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, newError(KindForbidden, op, "admin privileges required")
	}
	return actor, nil
}
