package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"coin-task-desk/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCollectAccessFeeSkipsEmptyBalance(t *testing.T) {
	e, st := newTestEngine(t)
	seedProfile(t, st, "u", 0, false)

	txn, err := e.CollectAccessFee(context.Background(), "u")
	if !errors.Is(err, ErrInsufficientBalance) || txn != nil {
		t.Fatalf("expected InsufficientBalance without transaction, got %v %v", txn, err)
	}
	if ledgerLen(t, st) != 0 {
		t.Fatalf("skipped fee must not touch the ledger")
	}
	if mustProfile(t, st, "u").Balance != 0 {
		t.Fatalf("balance went negative")
	}
}

func TestCollectAccessFeeChargesLastCoin(t *testing.T) {
	e, st := newTestEngine(t)
	seedProfile(t, st, "u", 1, false)

	txn, err := e.CollectAccessFee(context.Background(), "u")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if txn.Type != models.TransactionLoginFee || txn.Amount != 1 || txn.UserID != "u" {
		t.Fatalf("unexpected fee transaction %+v", txn)
	}
	if mustProfile(t, st, "u").Balance != 0 {
		t.Fatalf("balance not debited")
	}
	if ledgerLen(t, st) != 1 {
		t.Fatalf("expected exactly one transaction")
	}
}

func TestCollectAccessFeeExemptsAdmins(t *testing.T) {
	e, st := newTestEngine(t)
	seedProfile(t, st, "root", 50, true)

	_, err := e.CollectAccessFee(context.Background(), "root")
	if !errors.Is(err, ErrFeeExempt) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected exempt InvalidState, got %v", err)
	}
	p := mustProfile(t, st, "root")
	if p.Balance != 50 || p.Version != 1 {
		t.Fatalf("admin profile changed: balance=%d version=%d", p.Balance, p.Version)
	}
}

func TestChargeSessionFeeOncePerInterval(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e, st := newTestEngine(t, WithFeeGuard(NewRedisFeeGuard(rdb, time.Hour)))
	seedProfile(t, st, "u", 5, false)
	ctx := context.Background()

	if _, err := e.ChargeSessionFee(ctx, "u", "sess-1", 1); err != nil {
		t.Fatalf("first charge: %v", err)
	}
	_, err = e.ChargeSessionFee(ctx, "u", "sess-1", 1)
	if !errors.Is(err, ErrDuplicateCharge) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate charge conflict, got %v", err)
	}
	if _, err := e.ChargeSessionFee(ctx, "u", "sess-1", 2); err != nil {
		t.Fatalf("next interval: %v", err)
	}
	if got := mustProfile(t, st, "u").Balance; got != 3 {
		t.Fatalf("balance = %d, want 3", got)
	}
}

func TestChargeSessionFeeReleasesClaimOnInfraError(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer s.Close()
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	e, st := newTestEngine(t)
	e.guard = claimIgnoresCancel{NewRedisFeeGuard(rdb, time.Hour)}
	seedProfile(t, st, "u", 5, false)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.ChargeSessionFee(cancelled, "u", "sess-1", 1); err == nil || KindOf(err) != "" {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
	if s.Exists(feeKeyPrefix + "u:sess-1:1") {
		t.Fatalf("claim was not released")
	}
	if _, err := e.ChargeSessionFee(context.Background(), "u", "sess-1", 1); err != nil {
		t.Fatalf("retry after release: %v", err)
	}
}

// claimIgnoresCancel lets the claim land on a cancelled context so the store
// call that follows fails. Release still uses whatever context it is given.
type claimIgnoresCancel struct{ *RedisFeeGuard }

func (c claimIgnoresCancel) Claim(_ context.Context, key string) (bool, error) {
	return c.RedisFeeGuard.Claim(context.Background(), key)
}

func TestNilFeeGuardClaimsEverything(t *testing.T) {
	var g *RedisFeeGuard
	ok, err := g.Claim(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("nil guard claim = %v, %v", ok, err)
	}
	if err := g.Release(context.Background(), "k"); err != nil {
		t.Fatalf("nil guard release: %v", err)
	}
}
