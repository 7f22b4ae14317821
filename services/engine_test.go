package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/stores"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *stores.MemoryStore) {
	t.Helper()
	st := stores.NewMemoryStore()
	n := 0
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	}
	return NewEngine(st, DefaultEngineConfig, append(base, opts...)...), st
}

func seedProfile(t *testing.T, st stores.Store, id string, balance int64, admin bool) *models.UserProfile {
	t.Helper()
	p := &models.UserProfile{
		ID:       id,
		Username: "user " + id,
		Email:    id + "@example.com",
		Balance:  balance,
		Rating:   5,
		IsAdmin:  admin,
	}
	if err := st.Profiles().Upsert(context.Background(), p); err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
	return p
}

func seedTask(t *testing.T, st stores.Store, task models.Task) *models.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = models.TaskStatusOpen
	}
	if task.SelectionMethod == "" {
		task.SelectionMethod = models.SelectionManual
	}
	if task.CreatedAt == 0 {
		task.CreatedAt = testNow.Add(-time.Hour).UnixMilli()
	}
	task.RefreshCachedFields()
	if err := st.Tasks().Upsert(context.Background(), &task); err != nil {
		t.Fatalf("seed task %s: %v", task.ID, err)
	}
	return &task
}

func mustProfile(t *testing.T, st stores.Store, id string) *models.UserProfile {
	t.Helper()
	p, err := st.Profiles().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile %s: %v", id, err)
	}
	return p
}

func mustTask(t *testing.T, st stores.Store, id string) *models.Task {
	t.Helper()
	task, err := st.Tasks().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get task %s: %v", id, err)
	}
	return task
}

func ledgerLen(t *testing.T, st stores.Store) int {
	t.Helper()
	all, err := st.Ledger().GetAll(context.Background())
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	return len(all)
}

func ms(d time.Duration) *int64 {
	v := testNow.Add(d).UnixMilli()
	return &v
}

func TestAtomicallyRetriesThenReportsConflict(t *testing.T) {
	e, _ := newTestEngine(t)
	calls := 0
	err := e.atomically(context.Background(), "op", func(tx stores.Store) error {
		calls++
		return stores.ErrVersionConflict
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if calls != DefaultEngineConfig.MaxRetries {
		t.Fatalf("expected %d attempts, got %d", DefaultEngineConfig.MaxRetries, calls)
	}
}

func TestConcurrentSettlementsKeepLedgerBalanced(t *testing.T) {
	e, st := newTestEngine(t, WithIDGenerator(newSafeIDs()))
	seedProfile(t, st, "payer", 100, false)
	seedProfile(t, st, "worker", 0, false)
	for i := 0; i < 5; i++ {
		seedTask(t, st, models.Task{
			ID:        fmt.Sprintf("task-%d", i),
			Title:     "job",
			Reward:    10,
			CreatorID: "payer",
			Status:    models.TaskStatusInProgress,
			Bids:      []models.Bid{{ID: fmt.Sprintf("b-%d", i), UserID: "worker", Amount: 10}},
			WinnerID:  "worker",
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.FinalizeTask(context.Background(), "payer", fmt.Sprintf("task-%d", i), 10); err != nil {
				t.Errorf("finalize task-%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := mustProfile(t, st, "payer").Balance; got != 50 {
		t.Fatalf("payer balance = %d, want 50", got)
	}
	w := mustProfile(t, st, "worker")
	if w.Balance != 50 || w.CompletedTasks != 5 {
		t.Fatalf("worker = %d coins / %d tasks, want 50 / 5", w.Balance, w.CompletedTasks)
	}
	if n := ledgerLen(t, st); n != 10 {
		t.Fatalf("ledger has %d rows, want 10", n)
	}
}

func newSafeIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("cid-%03d", n)
	}
}
