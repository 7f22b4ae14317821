// services/sync.go
package services

import (
	"context"
	"log"

	"coin-task-desk/models"
)

// Snapshot is what a client refreshes on each sync cycle.
type Snapshot struct {
	Tasks        []models.Task        `json:"tasks"`
	Profile      *models.UserProfile  `json:"profile"`
	Transactions []models.Transaction `json:"transactions"`
	Sweep        *SweepResult         `json:"sweep,omitempty"`
}

// SyncOrchestrator drives the fixed refresh sequence: sweep expired auctions,
// then read tasks, the caller's profile and the caller's transactions.
type SyncOrchestrator struct {
	engine *Engine
}

func NewSyncOrchestrator(engine *Engine) *SyncOrchestrator {
	return &SyncOrchestrator{engine: engine}
}

// Sync runs one cycle for userID. A failed sweep is logged and the reads
// still proceed, so a client always gets a view of current state.
func (s *SyncOrchestrator) Sync(ctx context.Context, userID string) (*Snapshot, error) {
	snap := &Snapshot{}

	sweep, err := s.engine.SweepExpiredAuctions(ctx)
	if err != nil {
		log.Printf("[SYNC] ⚠️ Sweep failed, continuing with reads: %v", err)
	} else {
		snap.Sweep = sweep
	}

	if snap.Tasks, err = s.engine.ListTasks(ctx, ""); err != nil {
		return nil, err
	}
	if snap.Profile, err = s.engine.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	if snap.Transactions, err = s.engine.ListUserTransactions(ctx, userID); err != nil {
		return nil, err
	}
	return snap, nil
}
