package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/services"
	"coin-task-desk/stores"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockFixture(t *testing.T, balance int64, admin bool) (*SessionClock, *fakeClock, stores.Store) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	st := stores.NewMemoryStore()
	if err := st.Profiles().Upsert(context.Background(), &models.UserProfile{
		ID: "u", Username: "U", Email: "u@example.com", Balance: balance, IsAdmin: admin,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	engine := services.NewEngine(st, services.DefaultEngineConfig, services.WithClock(clock.Now))
	return NewSessionClock(engine, 100*time.Second, 5*time.Minute, clock.Now), clock, st
}

func profile(t *testing.T, st stores.Store) *models.UserProfile {
	t.Helper()
	p, err := st.Profiles().GetByID(context.Background(), "u")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	return p
}

func TestSessionClockChargesPerInterval(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, false)
	ctx := context.Background()
	c.Start(ctx, "u", false)

	clock.Advance(99 * time.Second)
	c.Tick(ctx)
	if got := profile(t, st).Balance; got != 5 {
		t.Fatalf("charged before the first boundary: balance %d", got)
	}

	clock.Advance(time.Second)
	c.Heartbeat("u")
	c.Tick(ctx)
	c.Tick(ctx)
	if got := profile(t, st).Balance; got != 4 {
		t.Fatalf("balance = %d after one interval, want 4", got)
	}

	clock.Advance(200 * time.Second)
	c.Heartbeat("u")
	c.Tick(ctx)
	p := profile(t, st)
	if p.Balance != 2 {
		t.Fatalf("balance = %d after three intervals, want 2", p.Balance)
	}
	if p.SessionSeconds != 300 || p.TotalLifetimeSeconds != 300 {
		t.Fatalf("session=%d lifetime=%d, want 300/300", p.SessionSeconds, p.TotalLifetimeSeconds)
	}
}

func TestSessionClockNeverGoesNegative(t *testing.T) {
	c, clock, st := newClockFixture(t, 1, false)
	ctx := context.Background()
	c.Start(ctx, "u", false)

	clock.Advance(250 * time.Second)
	c.Heartbeat("u")
	c.Tick(ctx)

	if got := profile(t, st).Balance; got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
	txns, _ := st.Ledger().GetByUser(ctx, "u")
	if len(txns) != 1 {
		t.Fatalf("expected one fee transaction, got %d", len(txns))
	}
}

func TestSessionClockExemptsAdmins(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, true)
	ctx := context.Background()
	c.Start(ctx, "u", true)

	clock.Advance(250 * time.Second)
	c.Heartbeat("u")
	c.Tick(ctx)

	p := profile(t, st)
	if p.Balance != 5 || p.SessionSeconds != 250 {
		t.Fatalf("admin balance=%d session=%d", p.Balance, p.SessionSeconds)
	}
}

func TestSessionClockExpiresIdleSessions(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, false)
	ctx := context.Background()
	c.Start(ctx, "u", false)

	clock.Advance(150 * time.Second)
	c.Heartbeat("u")
	clock.Advance(10 * time.Minute)
	c.Tick(ctx)

	if c.Active() != 0 {
		t.Fatalf("idle session still active")
	}
	p := profile(t, st)
	if p.Balance != 4 || p.SessionSeconds != 150 {
		t.Fatalf("idle session settled past last heartbeat: balance=%d session=%d", p.Balance, p.SessionSeconds)
	}
	if _, err := c.Heartbeat("u"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSessionClockStopSettles(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, false)
	ctx := context.Background()
	c.Start(ctx, "u", false)

	clock.Advance(120 * time.Second)
	if err := c.Stop(ctx, "u"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	p := profile(t, st)
	if p.Balance != 4 || p.TotalLifetimeSeconds != 120 {
		t.Fatalf("balance=%d lifetime=%d", p.Balance, p.TotalLifetimeSeconds)
	}
	if err := c.Stop(ctx, "u"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second stop: expected ErrNoSession, got %v", err)
	}
}

func TestSessionClockReloginKeepsSessionReset(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, false)
	engine := services.NewEngine(st, services.DefaultEngineConfig, services.WithClock(clock.Now))
	ctx := context.Background()
	login := func() *models.UserProfile {
		t.Helper()
		p, err := engine.AuthenticateOrCreateProfile(ctx, services.LoginRequest{Email: "u@example.com"})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		c.Start(ctx, p.ID, p.IsAdmin)
		return p
	}

	login()
	clock.Advance(250 * time.Second)
	c.Heartbeat("u")

	if returned := login(); returned.SessionSeconds != 0 {
		t.Fatalf("login returned sessionSeconds=%d", returned.SessionSeconds)
	}
	p := profile(t, st)
	if p.SessionSeconds != 0 {
		t.Fatalf("stored sessionSeconds = %d after relogin, want 0", p.SessionSeconds)
	}
	if p.TotalLifetimeSeconds != 250 || p.Balance != 3 {
		t.Fatalf("lifetime=%d balance=%d, want 250/3", p.TotalLifetimeSeconds, p.Balance)
	}

	clock.Advance(30 * time.Second)
	c.Heartbeat("u")
	c.Tick(ctx)
	if p := profile(t, st); p.SessionSeconds != 30 || p.TotalLifetimeSeconds != 280 {
		t.Fatalf("new session: session=%d lifetime=%d, want 30/280", p.SessionSeconds, p.TotalLifetimeSeconds)
	}
}

func TestSessionClockReplacedSessionAddsUnflushedTime(t *testing.T) {
	c, clock, st := newClockFixture(t, 5, false)
	ctx := context.Background()
	c.Start(ctx, "u", false)

	clock.Advance(40 * time.Second)
	c.Tick(ctx)
	clock.Advance(20 * time.Second)
	c.Heartbeat("u")
	if err := st.Profiles().Upsert(ctx, resetSession(profile(t, st))); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c.Start(ctx, "u", false)

	p := profile(t, st)
	if p.SessionSeconds != 0 || p.TotalLifetimeSeconds != 60 {
		t.Fatalf("session=%d lifetime=%d, want 0/60", p.SessionSeconds, p.TotalLifetimeSeconds)
	}
}

func resetSession(p *models.UserProfile) *models.UserProfile {
	p.SessionSeconds = 0
	return p
}
