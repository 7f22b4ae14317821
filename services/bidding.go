// services/bidding.go
package services

import (
	"context"
	"log"

	"coin-task-desk/metrics"
	"coin-task-desk/models"
	"coin-task-desk/stores"
)

// PlaceBid records a caller-constructed bid on an open task. No winner is
// computed here; that happens on award or expiry.
func (e *Engine) PlaceBid(ctx context.Context, taskID string, bid models.Bid) (*models.Task, error) {
	const op = "placeBid"
	if bid.ID == "" || bid.UserID == "" {
		return nil, newError(KindInvalidInput, op, "bid id and user id are required")
	}
	if bid.Amount <= 0 {
		return nil, newError(KindInvalidBid, op, "bid amount must be positive")
	}

	var task *models.Task
	err := e.atomically(ctx, op, func(tx stores.Store) error {
		t, err := loadTask(ctx, tx, op, taskID)
		if err != nil {
			return err
		}
		if t.Status != models.TaskStatusOpen {
			return newError(KindInvalidState, op, "task %s is %s and no longer accepts bids", taskID, t.Status)
		}
		if t.AuctionClosed(e.now()) {
			return newError(KindInvalidState, op, "auction for task %s has ended", taskID)
		}
		if t.CreatorID == bid.UserID {
			return newError(KindInvalidBid, op, "creators cannot bid on their own task")
		}
		if bid.Amount > t.Reward {
			return newError(KindInvalidBid, op, "bid %d exceeds the offered reward %d", bid.Amount, t.Reward)
		}
		if _, dup := t.FindBid(bid.ID); dup {
			return newError(KindInvalidBid, op, "bid %s already recorded", bid.ID)
		}
		t.AddBid(bid)
		if err := tx.Tasks().Upsert(ctx, t); err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BidsPlaced.Inc()
	log.Printf("[ENGINE] 🏷️ Bid %s on task %s: %d by %s (%d bids)", bid.ID, taskID, bid.Amount, bid.UserID, task.BidCount)
	return task, nil
}

// SubmitBid is the user-facing entry point: it applies the bidder policy
// (a strictly positive balance) and builds the bid before placing it.
func (e *Engine) SubmitBid(ctx context.Context, userID, taskID string, amount int64) (*models.Task, error) {
	const op = "submitBid"
	bidder, err := loadProfile(ctx, e.store, op, userID)
	if err != nil {
		return nil, err
	}
	if bidder.Balance < 1 {
		return nil, newError(KindInsufficientBalance, op, "a positive balance is required to bid")
	}
	return e.PlaceBid(ctx, taskID, models.Bid{
		ID:        e.newID(),
		UserID:    bidder.ID,
		UserName:  bidder.Username,
		Amount:    amount,
		Timestamp: e.now().UnixMilli(),
	})
}
