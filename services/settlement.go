// services/settlement.go
package services

import (
	"context"
	"log"

	"coin-task-desk/metrics"
	"coin-task-desk/models"
	"coin-task-desk/stores"
	"coin-task-desk/utils"
)

// Settlement is the outcome of finalizing a task: the completed task, both
// parties after the transfer and the ledger rows that record it.
type Settlement struct {
	Task         *models.Task         `json:"task"`
	Payer        *models.UserProfile  `json:"payer"`
	Winner       *models.UserProfile  `json:"winner,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
}

// FinalizeTask completes a task and releases reward from the payer to the
// winner. The payer debit, the winner credit and both ledger rows are written
// in one store transaction.
func (e *Engine) FinalizeTask(ctx context.Context, payerID, taskID string, reward int64) (*Settlement, error) {
	const op = "finalizeTask"
	if reward <= 0 {
		return nil, newError(KindInvalidInput, op, "reward must be positive")
	}

	var out *Settlement
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		payer, err := loadProfile(ctx, tx, op, payerID)
		if err != nil {
			return err
		}
		if payer.ID != t.CreatorID {
			return newError(KindForbidden, op, "only the creator can release payment for task %s", taskID)
		}
		if !models.CanTransition(t.Status, models.TaskStatusCompleted) {
			return newError(KindInvalidState, op, "task %s is %s and cannot be finalized", taskID, t.Status)
		}
		if t.WinnerID == payer.ID {
			return newError(KindInvalidState, op, "task %s is assigned to its own creator", taskID)
		}
		if payer.Balance < reward {
			return newError(KindInsufficientBalance, op, "balance %d is below the reward %d", payer.Balance, reward)
		}

		var winner *models.UserProfile
		if t.WinnerID != "" {
			winner, err = loadProfile(ctx, tx, op, t.WinnerID)
			if err != nil {
				return err
			}
		}

		t.Status = models.TaskStatusCompleted
		t.RefreshCachedFields()
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}

		payer.Balance -= reward
		if err := tx.Profiles().Upsert(ctx, payer); err != nil {
			return err
		}
		payment := e.newTransaction(payer, reward, models.TransactionTaskPayment, models.TransactionCompleted,
			"Payment for task: "+t.Title)
		payment.TaskID = t.ID
		if err := tx.Ledger().Append(ctx, payment); err != nil {
			return err
		}
		out = &Settlement{Task: t, Payer: payer, Transactions: []models.Transaction{*payment}}

		if winner != nil {
			winner.Balance += reward
			winner.CompletedTasks++
			if err := tx.Profiles().Upsert(ctx, winner); err != nil {
				return err
			}
			earning := e.newTransaction(winner, reward, models.TransactionEarning, models.TransactionCompleted,
				"Earned from task: "+t.Title)
			earning.TaskID = t.ID
			if err := tx.Ledger().Append(ctx, earning); err != nil {
				return err
			}
			out.Winner = winner
			out.Transactions = append(out.Transactions, *earning)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Settlements.Inc()
	metrics.SettledCoins.Add(float64(reward))
	log.Printf("[ENGINE] 💰 Task %s settled: %s paid %s to %s", taskID, payerID, utils.FormatCoins(reward), out.Task.WinnerID)
	return out, nil
}
