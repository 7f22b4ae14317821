// services/ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"coin-task-desk/metrics"
	"coin-task-desk/models"
	"coin-task-desk/stores"
	"coin-task-desk/utils"
)

// RequestDeposit records a Pending top-up against an external payment
// reference. The balance is credited only when an admin approves it.
func (e *Engine) RequestDeposit(ctx context.Context, userID string, amount int64, utr string) (*models.Transaction, error) {
	const op = "requestDeposit"
	utr = strings.TrimSpace(utr)
	if amount <= 0 {
		return nil, newError(KindInvalidInput, op, "deposit amount must be positive")
	}
	if utr == "" {
		return nil, newError(KindInvalidInput, op, "a payment reference (utr) is required")
	}

	var pending *models.Transaction
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		p, err := loadProfile(ctx, tx, op, userID)
		if err != nil {
			return err
		}
		pending = e.newTransaction(p, amount, models.TransactionDeposit, models.TransactionPending,
			"Deposit request ("+utils.FormatCoins(amount)+")")
		pending.UTR = utr
		return tx.Ledger().Append(ctx, pending)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[ENGINE] 🧾 Deposit requested by %s: %d (utr=%s)", userID, amount, utr)
	return pending, nil
}

// ApproveTransaction completes a Pending transaction. An approved DEPOSIT
// credits the user; any other type only changes status. A transaction that
// is no longer Pending is refused, so approval never applies twice.
func (e *Engine) ApproveTransaction(ctx context.Context, adminID, txID string) (*models.Transaction, error) {
	return e.reviewTransaction(ctx, "approveTransaction", adminID, txID, models.TransactionCompleted)
}

// RejectTransaction fails a Pending transaction without touching balances.
func (e *Engine) RejectTransaction(ctx context.Context, adminID, txID string) (*models.Transaction, error) {
	return e.reviewTransaction(ctx, "rejectTransaction", adminID, txID, models.TransactionFailed)
}

func (e *Engine) reviewTransaction(ctx context.Context, op, adminID, txID string, to models.TransactionStatus) (*models.Transaction, error) {
	var reviewed *models.Transaction
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		if _, err := requireAdmin(ctx, tx, op, adminID); err != nil {
			return err
		}
		t, err := loadTransaction(ctx, tx, op, txID)
		if err != nil {
			return err
		}
		if t.Status != models.TransactionPending {
			return newError(KindInvalidState, op, "transaction %s is already %s", txID, t.Status)
		}
		if err := tx.Ledger().UpdateStatus(ctx, t.ID, models.TransactionPending, to); err != nil {
			if errors.Is(err, stores.ErrStatusMismatch) {
				return newError(KindInvalidState, op, "transaction %s was reviewed concurrently", txID)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		t.Status = to

		if to == models.TransactionCompleted && t.Type == models.TransactionDeposit {
			p, err := loadProfile(ctx, tx, op, t.UserID)
			if err != nil {
				return err
			}
			p.Balance += t.Amount
			if err := tx.Profiles().Upsert(ctx, p); err != nil {
				return err
			}
		}
		reviewed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	decision := "approved"
	if to == models.TransactionFailed {
		decision = "rejected"
	}
	metrics.TransactionsReviewed.WithLabelValues(decision, string(reviewed.Type)).Inc()
	log.Printf("[ENGINE] ✅ Transaction %s %s by %s (%s %d for %s)", reviewed.ID, decision, adminID, reviewed.Type, reviewed.Amount, reviewed.UserID)
	return reviewed, nil
}

// ListUserTransactions returns a user's ledger, newest first.
func (e *Engine) ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	out, err := e.store.Ledger().GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listUserTransactions: %w", err)
	}
	return out, nil
}

// ListAllTransactions returns the whole ledger. Admin only.
func (e *Engine) ListAllTransactions(ctx context.Context, adminID string) ([]models.Transaction, error) {
	const op = "listAllTransactions"
	if _, err := requireAdmin(ctx, e.store, op, adminID); err != nil {
		return nil, err
	}
	out, err := e.store.Ledger().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
