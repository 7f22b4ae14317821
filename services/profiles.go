// services/profiles.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"coin-task-desk/models"
	"coin-task-desk/stores"
	"coin-task-desk/utils"
)

const defaultUsername = "Anonymous Professional"

// LoginRequest is what the upstream identity provider hands over after a
// successful sign-in. IsAdmin comes from gateway roles, never from the client.
type LoginRequest struct {
	Username   string
	Email      string
	ProfilePic string
	IsAdmin    bool
}

// AuthenticateOrCreateProfile finds the profile registered under the email or
// creates it with the starting balance. Either way a new session begins, so
// sessionSeconds is reset.
func (e *Engine) AuthenticateOrCreateProfile(ctx context.Context, req LoginRequest) (*models.UserProfile, error) {
	const op = "authenticateOrCreateProfile"

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, newError(KindInvalidInput, op, "a valid email is required")
	}

	var profile *models.UserProfile
	var created bool
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		created = false
		existing, err := tx.Profiles().GetByEmail(ctx, email)
		switch {
		case err == nil:
			existing.SessionSeconds = 0
			if err := tx.Profiles().Upsert(ctx, existing); err != nil {
				return err
			}
			profile = existing
			return nil
		case !errors.Is(err, stores.ErrNotFound):
			return fmt.Errorf("%s: lookup by email: %w", op, err)
		}

		username := strings.TrimSpace(req.Username)
		if username == "" {
			username = defaultUsername
		}
		p := &models.UserProfile{
			ID:         e.newID(),
			Username:   username,
			Email:      email,
			Rating:     5.0,
			ProfilePic: req.ProfilePic,
			IsAdmin:    req.IsAdmin || e.isAdminEmail(email),
		}
		var bonus *models.Transaction
		if e.cfg.StartingBalance > 0 {
			p.Balance = e.cfg.StartingBalance
			bonus = e.newTransaction(p, e.cfg.StartingBalance, models.TransactionDeposit, models.TransactionCompleted,
				"Starting balance bonus ("+utils.FormatCoins(e.cfg.StartingBalance)+")")
		}
		if err := tx.Profiles().Upsert(ctx, p); err != nil {
			return err
		}
		if bonus != nil {
			if err := tx.Ledger().Append(ctx, bonus); err != nil {
				return err
			}
		}
		profile = p
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Printf("[ENGINE] 🆕 Profile created: %s (%s) admin=%t balance=%d", profile.ID, profile.Email, profile.IsAdmin, profile.Balance)
	} else {
		log.Printf("[ENGINE] 👤 Session started for %s", profile.ID)
	}
	return profile, nil
}

// RecordSessionTime stores the seconds accrued by a session. lifetimeDelta is
// the part not yet added to totalLifetimeSeconds.
func (e *Engine) RecordSessionTime(ctx context.Context, userID string, sessionSeconds, lifetimeDelta int64) error {
	const op = "recordSessionTime"
	if sessionSeconds < 0 || lifetimeDelta < 0 {
		return newError(KindInvalidInput, op, "session time cannot be negative")
	}
	return e.atomically(ctx, op, func(tx stores.Store) error {
		p, err := loadProfile(ctx, tx, op, userID)
		if err != nil {
			return err
		}
		p.SessionSeconds = sessionSeconds
		p.TotalLifetimeSeconds += lifetimeDelta
		return tx.Profiles().Upsert(ctx, p)
	})
}

// AddLifetimeSeconds credits time from a session that has been replaced by a
// newer one. The visible sessionSeconds belong to the new session and are
// left alone.
func (e *Engine) AddLifetimeSeconds(ctx context.Context, userID string, delta int64) error {
	const op = "addLifetimeSeconds"
	if delta < 0 {
		return newError(KindInvalidInput, op, "session time cannot be negative")
	}
	return e.atomically(ctx, op, func(tx stores.Store) error {
		p, err := loadProfile(ctx, tx, op, userID)
		if err != nil {
			return err
		}
		p.TotalLifetimeSeconds += delta
		return tx.Profiles().Upsert(ctx, p)
	})
}

func (e *Engine) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return loadProfile(ctx, e.store, "getProfile", userID)
}

// ListProfiles returns the whole registry. Admin only.
func (e *Engine) ListProfiles(ctx context.Context, adminID string) ([]models.UserProfile, error) {
	const op = "listProfiles"
	if _, err := requireAdmin(ctx, e.store, op, adminID); err != nil {
		return nil, err
	}
	out, err := e.store.Profiles().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
