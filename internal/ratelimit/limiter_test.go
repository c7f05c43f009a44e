package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/fleetwatch/internal/ratelimit"
)

func newLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return ratelimit.NewLimiter(client, "test-salt"), mr
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	l, _ := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		d, err := l.Check(context.Background(), "ip-1", cfg)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied under limit", i+1)
		}
		if want := 3 - (i + 1); d.Remaining != want {
			t.Errorf("request %d: remaining = %d, want %d", i+1, d.Remaining, want)
		}
	}
}

func TestCheckDeniesOverLimit(t *testing.T) {
	l, _ := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 2, Window: time.Minute}
	ctx := context.Background()

	l.Check(ctx, "ip-1", cfg)
	l.Check(ctx, "ip-1", cfg)
	d, err := l.Check(ctx, "ip-1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Error("third request allowed with rate 2")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Remaining)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("retry-after = %d, want positive", d.RetryAfter)
	}
}

func TestCheckWindowReset(t *testing.T) {
	l, mr := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 1, Window: time.Minute}
	ctx := context.Background()

	l.Check(ctx, "ip-1", cfg)
	if d, _ := l.Check(ctx, "ip-1", cfg); d.Allowed {
		t.Fatal("second request in window allowed")
	}

	mr.FastForward(time.Minute + time.Second)

	d, err := l.Check(ctx, "ip-1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Error("request denied after window expired")
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	l, _ := newLimiter(t)
	cfg := ratelimit.LimitConfig{Rate: 1, Window: time.Minute}
	ctx := context.Background()

	l.Check(ctx, "ip-1", cfg)
	d, err := l.Check(ctx, "ip-2", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Error("other key throttled by ip-1's window")
	}
}

func TestCheckRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := ratelimit.NewLimiter(client, "")
	mr.Close()

	if _, err := l.Check(context.Background(), "ip-1", ratelimit.LimitConfig{Rate: 1, Window: time.Minute}); err == nil {
		t.Error("check succeeded against a dead redis")
	}
}

func TestHashIPStableAndOpaque(t *testing.T) {
	l, _ := newLimiter(t)
	h1 := l.HashIP("203.0.113.9")
	h2 := l.HashIP("203.0.113.9")
	if h1 != h2 {
		t.Error("hash not stable for same IP")
	}
	if h1 == "203.0.113.9" || len(h1) != 64 {
		t.Errorf("hash looks wrong: %q", h1)
	}
}
