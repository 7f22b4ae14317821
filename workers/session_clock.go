// workers/session_clock.go
package workers

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/services"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("no active session")

// SessionLedger is the slice of the engine the session clock drives.
type SessionLedger interface {
	ChargeSessionFee(ctx context.Context, userID, sessionID string, interval int64) (*models.Transaction, error)
	RecordSessionTime(ctx context.Context, userID string, sessionSeconds, lifetimeDelta int64) error
	AddLifetimeSeconds(ctx context.Context, userID string, delta int64) error
}

type session struct {
	id        string
	userID    string
	isAdmin   bool
	startedAt time.Time
	lastSeen  time.Time
	charged   int64 // fee intervals already handled
	flushed   int64 // seconds already added to the lifetime total
}

func (s *session) seconds(until time.Time) int64 {
	if until.Before(s.startedAt) {
		return 0
	}
	return int64(until.Sub(s.startedAt) / time.Second)
}

// SessionClock tracks connected time per user. Each tick it charges the access
// fee for every interval boundary crossed since the last tick and flushes the
// accrued seconds to the profile. Sessions without a heartbeat for longer than
// the idle timeout are closed.
type SessionClock struct {
	ledger   SessionLedger
	feeEvery time.Duration
	idle     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session // by user id
}

func NewSessionClock(ledger SessionLedger, feeEvery, idle time.Duration, now func() time.Time) *SessionClock {
	if now == nil {
		now = time.Now
	}
	if feeEvery < time.Second {
		feeEvery = 100 * time.Second
	}
	return &SessionClock{
		ledger:   ledger,
		feeEvery: feeEvery,
		idle:     idle,
		now:      now,
		sessions: make(map[string]*session),
	}
}

// Start opens a session for userID, closing any session it already had. The
// replaced session still pays its fees and adds to the lifetime total, but
// does not overwrite the new session's counter.
func (c *SessionClock) Start(ctx context.Context, userID string, isAdmin bool) string {
	now := c.now()
	s := &session{
		id:        uuid.NewString(),
		userID:    userID,
		isAdmin:   isAdmin,
		startedAt: now,
		lastSeen:  now,
	}

	c.mu.Lock()
	prev := c.sessions[userID]
	c.sessions[userID] = s
	c.mu.Unlock()

	if prev != nil {
		c.settle(ctx, prev, prev.lastSeen)
	}
	log.Printf("[SESSION] ▶️ Session %s started for %s (admin=%t)", s.id, userID, isAdmin)
	return s.id
}

// Heartbeat marks the user's session as alive.
func (c *SessionClock) Heartbeat(userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		return "", ErrNoSession
	}
	s.lastSeen = c.now()
	return s.id, nil
}

// Stop closes the user's session, settling fees and time up to now.
func (c *SessionClock) Stop(ctx context.Context, userID string) error {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	delete(c.sessions, userID)
	c.mu.Unlock()
	if !ok {
		return ErrNoSession
	}
	c.settle(ctx, s, c.now())
	log.Printf("[SESSION] ⏹️ Session %s stopped for %s", s.id, userID)
	return nil
}

func (c *SessionClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Tick settles every session once. Idle sessions are settled up to their
// last heartbeat and removed.
func (c *SessionClock) Tick(ctx context.Context) {
	now := c.now()

	type work struct {
		s     *session
		until time.Time
	}
	var due []work

	c.mu.Lock()
	for userID, s := range c.sessions {
		if now.Sub(s.lastSeen) > c.idle {
			delete(c.sessions, userID)
			log.Printf("[SESSION] 💤 Session %s for %s expired after %s idle", s.id, userID, c.idle)
			due = append(due, work{s, s.lastSeen})
			continue
		}
		due = append(due, work{s, now})
	}
	c.mu.Unlock()

	for _, w := range due {
		c.settle(ctx, w.s, w.until)
	}
}

func (c *SessionClock) settle(ctx context.Context, s *session, until time.Time) {
	secs := s.seconds(until)

	c.mu.Lock()
	current := c.sessions[s.userID]
	replaced := current != nil && current != s
	from := s.charged
	intervals := secs / int64(c.feeEvery/time.Second)
	s.charged = max(s.charged, intervals)
	delta := secs - s.flushed
	if delta > 0 {
		s.flushed = secs
	}
	c.mu.Unlock()

	if !s.isAdmin {
		for i := from + 1; i <= intervals; i++ {
			c.chargeInterval(ctx, s, i)
		}
	}
	switch {
	case delta <= 0:
	case replaced:
		if err := c.ledger.AddLifetimeSeconds(ctx, s.userID, delta); err != nil {
			log.Printf("[SESSION] ❌ Failed to add %ds to the lifetime of %s: %v", delta, s.userID, err)
		}
	default:
		if err := c.ledger.RecordSessionTime(ctx, s.userID, secs, delta); err != nil {
			log.Printf("[SESSION] ❌ Failed to record %ds for %s: %v", secs, s.userID, err)
		}
	}
}

func (c *SessionClock) chargeInterval(ctx context.Context, s *session, interval int64) {
	txn, err := c.ledger.ChargeSessionFee(ctx, s.userID, s.id, interval)
	switch {
	case err == nil:
		log.Printf("[SESSION] 🪙 Access fee %s charged to %s (interval %d)", txn.ID, s.userID, interval)
	case errors.Is(err, services.ErrInsufficientBalance):
		log.Printf("[SESSION] ⚠️ %s cannot cover the access fee for interval %d", s.userID, interval)
	case errors.Is(err, services.ErrDuplicateCharge), errors.Is(err, services.ErrFeeExempt):
	default:
		log.Printf("[SESSION] ❌ Access fee for %s interval %d failed: %v", s.userID, interval, err)
	}
}

// Run ticks the clock every interval until ctx is cancelled.
func (c *SessionClock) Run(ctx context.Context, every time.Duration) {
	log.Printf("[SESSION] Session clock running (fee every %s, idle timeout %s)", c.feeEvery, c.idle)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SESSION] Session clock stopped.")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}
