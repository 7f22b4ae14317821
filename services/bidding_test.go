package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"coin-task-desk/models"
)

func TestPlaceBidPrependsAndRefreshesCache(t *testing.T) {
	e, st := newTestEngine(t)
	seedTask(t, st, models.Task{ID: "t1", Title: "Logo", Reward: 100, CreatorID: "owner"})
	ctx := context.Background()

	if _, err := e.PlaceBid(ctx, "t1", models.Bid{ID: "b1", UserID: "A", Amount: 80, Timestamp: 1}); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	task, err := e.PlaceBid(ctx, "t1", models.Bid{ID: "b2", UserID: "B", Amount: 60, Timestamp: 2})
	if err != nil {
		t.Fatalf("second bid: %v", err)
	}
	if task.BidCount != 2 || task.Bids[0].ID != "b2" || task.HighestBid != 60 {
		t.Fatalf("unexpected task after bids: count=%d first=%s highest=%d", task.BidCount, task.Bids[0].ID, task.HighestBid)
	}
	if task.WinnerID != "" {
		t.Fatalf("bid placement must not select a winner")
	}
	stored := mustTask(t, st, "t1")
	if stored.BidCount != len(stored.Bids) {
		t.Fatalf("bidCount %d out of sync with %d bids", stored.BidCount, len(stored.Bids))
	}
}

func TestPlaceBidOnCompletedTaskFails(t *testing.T) {
	e, st := newTestEngine(t)
	seedTask(t, st, models.Task{
		ID: "t1", Title: "Done", Reward: 100, CreatorID: "owner",
		Status:   models.TaskStatusCompleted,
		Bids:     []models.Bid{{ID: "b1", UserID: "A", Amount: 50}},
		WinnerID: "A",
	})

	_, err := e.PlaceBid(context.Background(), "t1", models.Bid{ID: "b2", UserID: "B", Amount: 40})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if got := mustTask(t, st, "t1"); len(got.Bids) != 1 {
		t.Fatalf("bids changed: %d", len(got.Bids))
	}
}

func TestPlaceBidRejections(t *testing.T) {
	e, st := newTestEngine(t)
	seedTask(t, st, models.Task{ID: "open", Title: "Open", Reward: 100, CreatorID: "owner"})
	seedTask(t, st, models.Task{
		ID: "ended", Title: "Ended", Reward: 100, CreatorID: "owner",
		IsAuction: true, SelectionMethod: models.SelectionAutomatic,
		AuctionEndTime: ms(-time.Minute),
	})

	cases := []struct {
		name   string
		taskID string
		bid    models.Bid
		want   error
	}{
		{"zero amount", "open", models.Bid{ID: "x1", UserID: "A", Amount: 0}, ErrInvalidBid},
		{"negative amount", "open", models.Bid{ID: "x2", UserID: "A", Amount: -5}, ErrInvalidBid},
		{"above reward", "open", models.Bid{ID: "x3", UserID: "A", Amount: 101}, ErrInvalidBid},
		{"creator bid", "open", models.Bid{ID: "x4", UserID: "owner", Amount: 10}, ErrInvalidBid},
		{"missing id", "open", models.Bid{UserID: "A", Amount: 10}, ErrInvalidInput},
		{"unknown task", "nope", models.Bid{ID: "x5", UserID: "A", Amount: 10}, ErrNotFound},
		{"auction ended", "ended", models.Bid{ID: "x6", UserID: "A", Amount: 10}, ErrInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.PlaceBid(context.Background(), tc.taskID, tc.bid)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if got := mustTask(t, st, "open"); len(got.Bids) != 0 {
		t.Fatalf("rejected bids were recorded: %d", len(got.Bids))
	}
}

func TestSubmitBidRequiresPositiveBalance(t *testing.T) {
	e, st := newTestEngine(t)
	seedProfile(t, st, "broke", 0, false)
	seedProfile(t, st, "funded", 3, false)
	seedTask(t, st, models.Task{ID: "t1", Title: "Copy", Reward: 40, CreatorID: "owner"})

	if _, err := e.SubmitBid(context.Background(), "broke", "t1", 20); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	task, err := e.SubmitBid(context.Background(), "funded", "t1", 20)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	b := task.Bids[0]
	if b.UserID != "funded" || b.UserName != "user funded" || b.Timestamp != testNow.UnixMilli() || b.ID == "" {
		t.Fatalf("unexpected bid %+v", b)
	}
}
