package workers

import (
	"context"
	"testing"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/services"
	"coin-task-desk/stores"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLeaderLockSingleHolder(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	a := NewLeaderLock(rdb, "replica-a")
	b := NewLeaderLock(rdb, "replica-b")
	if ok, err := a.Acquire(ctx, "sweep", time.Minute); err != nil || !ok {
		t.Fatalf("a acquire: %v %v", ok, err)
	}
	if ok, err := b.Acquire(ctx, "sweep", time.Minute); err != nil || ok {
		t.Fatalf("b should not acquire: %v %v", ok, err)
	}
	s.FastForward(2 * time.Minute)
	if ok, err := b.Acquire(ctx, "sweep", time.Minute); err != nil || !ok {
		t.Fatalf("b acquire after expiry: %v %v", ok, err)
	}

	var none *LeaderLock
	if ok, _ := none.Acquire(ctx, "sweep", time.Minute); !ok {
		t.Fatalf("nil lock must always acquire")
	}
}

func TestSchedulerSweepResolvesExpiredAuctions(t *testing.T) {
	st := stores.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	end := now.Add(-time.Minute).UnixMilli()
	task := &models.Task{
		ID: "t1", Title: "Auction", Reward: 100, CreatorID: "owner",
		IsAuction: true, SelectionMethod: models.SelectionAutomatic,
		Status: models.TaskStatusOpen, AuctionEndTime: &end,
		Bids: []models.Bid{{ID: "b1", UserID: "B", Amount: 60}},
	}
	task.RefreshCachedFields()
	if err := st.Tasks().Upsert(ctx, task); err != nil {
		t.Fatalf("seed: %v", err)
	}

	engine := services.NewEngine(st, services.DefaultEngineConfig, services.WithClock(func() time.Time { return now }))
	s, err := NewScheduler(engine, nil, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.sweep(ctx, time.Minute)
	got, err := st.Tasks().GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.TaskStatusAwarded || got.WinnerID != "B" {
		t.Fatalf("status=%s winner=%s", got.Status, got.WinnerID)
	}
}
