// services/fees.go
package services

import (
	"context"
	"fmt"
	"log"

	"coin-task-desk/metrics"
	"coin-task-desk/models"
	"coin-task-desk/stores"
	"coin-task-desk/utils"
)

// CollectAccessFee debits the access fee from a non-admin user and records a
// LOGIN_FEE transaction. A user who cannot cover it is skipped; no debt is
// ever recorded.
func (e *Engine) CollectAccessFee(ctx context.Context, userID string) (*models.Transaction, error) {
	const op = "collectAccessFee"
	fee := e.cfg.AccessFee

	var charged *models.Transaction
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		p, err := loadProfile(ctx, tx, op, userID)
		if err != nil {
			return err
		}
		if p.IsAdmin {
			return &Error{Kind: KindInvalidState, Op: op, Msg: ErrFeeExempt.Error(), Err: ErrFeeExempt}
		}
		if p.Balance < fee {
			return newError(KindInsufficientBalance, op, "balance %d cannot cover the access fee %d", p.Balance, fee)
		}
		p.Balance -= fee
		if err := tx.Profiles().Upsert(ctx, p); err != nil {
			return err
		}
		charged = e.newTransaction(p, fee, models.TransactionLoginFee, models.TransactionCompleted,
			"Platform access fee ("+utils.FormatCoins(fee)+")")
		return tx.Ledger().Append(ctx, charged)
	})
	switch KindOf(err) {
	case "":
		if err != nil {
			return nil, err
		}
	case KindInvalidState:
		metrics.AccessFees.WithLabelValues("exempt").Inc()
		return nil, err
	case KindInsufficientBalance:
		metrics.AccessFees.WithLabelValues("skipped").Inc()
		log.Printf("[ENGINE] ⚠️ Access fee skipped for %s: insufficient balance", userID)
		return nil, err
	default:
		return nil, err
	}

	metrics.AccessFees.WithLabelValues("charged").Inc()
	return charged, nil
}

// ChargeSessionFee collects the fee for one interval boundary of a session.
// The boundary is claimed in the fee guard first so a redelivered tick
// cannot charge twice; the claim is released only when the charge failed for
// infrastructure reasons and may safely be retried.
func (e *Engine) ChargeSessionFee(ctx context.Context, userID, sessionID string, interval int64) (*models.Transaction, error) {
	const op = "chargeSessionFee"
	key := fmt.Sprintf("%s:%s:%d", userID, sessionID, interval)

	if e.guard != nil {
		ok, err := e.guard.Claim(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			metrics.AccessFees.WithLabelValues("duplicate").Inc()
			return nil, &Error{Kind: KindConflict, Op: op, Msg: ErrDuplicateCharge.Error(), Err: ErrDuplicateCharge}
		}
	}

	txn, err := e.CollectAccessFee(ctx, userID)
	if err != nil && KindOf(err) == "" && e.guard != nil {
		if rerr := e.guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
			log.Printf("[ENGINE] ❌ Failed to release fee claim %s: %v", key, rerr)
		}
	}
	return txn, err
}
