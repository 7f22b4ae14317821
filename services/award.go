// services/award.go
package services

import (
	"context"
	"log"
	"strings"

	"coin-task-desk/metrics"
	"coin-task-desk/models"
	"coin-task-desk/stores"
)

const expiredWithoutBids = "auction expired without bids"

// AwardManually selects a winner by hand and moves the task to In Progress.
//
// The creator may pick bidID, or the lowest bid when bidID is empty. When a
// non-auction task has no bids, any other user may accept it directly; the
// acceptance is recorded as a bid at the full reward so the winner always
// corresponds to a bid.
func (e *Engine) AwardManually(ctx context.Context, actorID, taskID, bidID string) (*models.Task, error) {
	const op = "awardManually"

	var task *models.Task
	var direct bool
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		direct = false
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		actor, err := loadProfile(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		if !models.CanTransition(t.Status, models.TaskStatusInProgress) {
			return newError(KindInvalidState, op, "task %s is %s", taskID, t.Status)
		}
		if t.SelectionMethod == models.SelectionAutomatic {
			return newError(KindInvalidState, op, "task %s is awarded automatically when its auction ends", taskID)
		}
		if t.AuctionClosed(e.now()) {
			return newError(KindInvalidState, op, "auction for task %s has ended", taskID)
		}

		var winner models.Bid
		switch {
		case actor.ID == t.CreatorID:
			if len(t.Bids) == 0 {
				return newError(KindInvalidState, op, "task %s has no bids to award", taskID)
			}
			if bidID != "" {
				b, ok := t.FindBid(bidID)
				if !ok {
					return newError(KindNotFound, op, "bid %s not found on task %s", bidID, taskID)
				}
				winner = b
			} else {
				winner, _ = t.LowestBid()
			}
		case !t.IsAuction && len(t.Bids) == 0:
			if actor.Balance < 1 {
				return newError(KindInsufficientBalance, op, "a positive balance is required to accept a task")
			}
			winner = models.Bid{
				ID:        e.newID(),
				UserID:    actor.ID,
				UserName:  actor.Username,
				Amount:    t.Reward,
				Timestamp: e.now().UnixMilli(),
			}
			t.AddBid(winner)
			direct = true
		default:
			return newError(KindForbidden, op, "only the creator can award task %s", taskID)
		}

		t.SetWinner(winner)
		t.Status = models.TaskStatusInProgress
		t.RefreshCachedFields()
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "awarded"
	if direct {
		outcome = "accepted"
	}
	metrics.AuctionsResolved.WithLabelValues("manual", outcome).Inc()
	log.Printf("[ENGINE] 🤝 Task %s %s: winner=%s amount=%d", task.ID, outcome, task.WinnerID, task.HighestBid)
	return task, nil
}

type SweepResult struct {
	Awarded   []string `json:"awarded"`
	Cancelled []string `json:"cancelled"`
}

func (r *SweepResult) Changed() int {
	return len(r.Awarded) + len(r.Cancelled)
}

// SweepExpiredAuctions resolves every open auction whose end time has passed:
// the lowest bid wins, and auctions without bids are cancelled. Only changed
// tasks are written, in one batch. Running it again is a no-op.
func (e *Engine) SweepExpiredAuctions(ctx context.Context) (*SweepResult, error) {
	const op = "sweepExpiredAuctions"

	var result *SweepResult
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		result = &SweepResult{}
		all, err := tx.Tasks().GetAll(ctx)
		if err != nil {
			return err
		}
		now := e.now()
		var changed []*models.Task
		for i := range all {
			t := &all[i]
			if !t.AuctionExpired(now) {
				continue
			}
			if winner, ok := t.LowestBid(); ok {
				t.SetWinner(winner)
				t.Status = models.TaskStatusAwarded
				result.Awarded = append(result.Awarded, t.ID)
			} else {
				t.Status = models.TaskStatusCancelled
				t.CancelReason = expiredWithoutBids
				result.Cancelled = append(result.Cancelled, t.ID)
			}
			t.RefreshCachedFields()
			changed = append(changed, t)
		}
		if len(changed) == 0 {
			return nil
		}
		return tx.Tasks().UpsertMany(ctx, changed)
	})
	if err != nil {
		return nil, err
	}

	if result.Changed() > 0 {
		metrics.AuctionsResolved.WithLabelValues("sweep", "awarded").Add(float64(len(result.Awarded)))
		metrics.AuctionsResolved.WithLabelValues("sweep", "cancelled").Add(float64(len(result.Cancelled)))
		log.Printf("[ENGINE] ⏰ Sweep resolved %d auctions (%d awarded, %d cancelled)", result.Changed(), len(result.Awarded), len(result.Cancelled))
	}
	return result, nil
}

// CancelTask moves a task to Cancelled and clears any winner. Admins may
// cancel any task that is not terminal; creators only before work starts.
func (e *Engine) CancelTask(ctx context.Context, actorID, taskID, reason string) (*models.Task, error) {
	const op = "cancelTask"
	reason = strings.TrimSpace(reason)

	var task *models.Task
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		actor, err := loadProfile(ctx, tx, op, actorID)
		if err != nil {
			return err
		}
		if !models.CanTransition(t.Status, models.TaskStatusCancelled) {
			return newError(KindInvalidState, op, "task %s is %s", taskID, t.Status)
		}
		switch {
		case actor.IsAdmin:
			if reason == "" {
				reason = "cancelled by administrator"
			}
		case actor.ID == t.CreatorID:
			if t.Status != models.TaskStatusOpen && t.Status != models.TaskStatusEvaluating {
				return newError(KindForbidden, op, "task %s already has a winner; ask an administrator to cancel it", taskID)
			}
			if reason == "" {
				reason = "cancelled by creator"
			}
		default:
			return newError(KindForbidden, op, "only the creator or an administrator can cancel task %s", taskID)
		}

		t.Status = models.TaskStatusCancelled
		t.CancelReason = reason
		t.WinnerID = ""
		t.WinnerName = ""
		t.RefreshCachedFields()
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AuctionsResolved.WithLabelValues("manual", "cancelled").Inc()
	log.Printf("[ENGINE] 🚫 Task %s cancelled by %s: %s", task.ID, actorID, task.CancelReason)
	return task, nil
}
