// workers/sweep_scheduler.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"coin-task-desk/services"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs the background expiry sweep and the optional ledger archive.
type Scheduler struct {
	sched    gocron.Scheduler
	engine   *services.Engine
	archiver *LedgerArchiver
	lock     *LeaderLock
}

func NewScheduler(engine *services.Engine, archiver *LedgerArchiver, lock *LeaderLock) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{sched: sched, engine: engine, archiver: archiver, lock: lock}, nil
}

// Start registers the jobs and starts the scheduler. A nil archiver skips
// the archive job.
func (s *Scheduler) Start(ctx context.Context, sweepEvery, archiveEvery time.Duration) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() { s.sweep(ctx, sweepEvery) }),
		gocron.WithName("sweep-expired-auctions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	if s.archiver != nil {
		_, err = s.sched.NewJob(
			gocron.DurationJob(archiveEvery),
			gocron.NewTask(func() { s.archive(ctx, archiveEvery) }),
			gocron.WithName("archive-ledger"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("schedule archive: %w", err)
		}
	}

	s.sched.Start()
	log.Printf("[SWEEP] Scheduler started (sweep every %s, archive=%t)", sweepEvery, s.archiver != nil)
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) sweep(ctx context.Context, window time.Duration) {
	if !s.holdsLock(ctx, "sweep", window) {
		return
	}
	res, err := s.engine.SweepExpiredAuctions(ctx)
	if err != nil {
		log.Printf("[SWEEP] ❌ Sweep failed: %v", err)
		return
	}
	if res.Changed() > 0 {
		log.Printf("✅ Sweep resolved %d auction(s)", res.Changed())
	}
}

func (s *Scheduler) archive(ctx context.Context, window time.Duration) {
	if !s.holdsLock(ctx, "archive", window) {
		return
	}
	if _, err := s.archiver.Archive(ctx); err != nil {
		log.Printf("[ARCHIVE] ❌ Ledger archive failed: %v", err)
	}
}

func (s *Scheduler) holdsLock(ctx context.Context, job string, window time.Duration) bool {
	ttl := window * 9 / 10
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.lock.Acquire(ctx, job, ttl)
	if err != nil {
		log.Printf("[SWEEP] ⚠️ Lock for %s unavailable, skipping: %v", job, err)
		return false
	}
	return ok
}
