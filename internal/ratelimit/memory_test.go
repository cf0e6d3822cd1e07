package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_Window(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "10.0.0.1", 3, now)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
		if result.Remaining != 3-(i+1) {
			t.Fatalf("expected remaining=%d, got %d", 3-(i+1), result.Remaining)
		}
	}

	result, err := limiter.Allow(ctx, "10.0.0.1", 3, now)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatalf("expected fourth request in window to be denied")
	}

	// Next window resets the counter.
	next, errNext := limiter.Allow(ctx, "10.0.0.1", 3, now.Add(time.Second))
	if errNext != nil {
		t.Fatalf("allow: %v", errNext)
	}
	if !next.Allowed {
		t.Fatalf("expected request in next window to be allowed")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Now()

	if result, _ := limiter.Allow(ctx, "10.0.0.1", 1, now); !result.Allowed {
		t.Fatalf("expected first key to be allowed")
	}
	if result, _ := limiter.Allow(ctx, "10.0.0.1", 1, now); result.Allowed {
		t.Fatalf("expected first key to be exhausted")
	}
	if result, _ := limiter.Allow(ctx, "10.0.0.2", 1, now); !result.Allowed {
		t.Fatalf("expected second key to be unaffected")
	}
}

func TestMemoryLimiter_ZeroLimitAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	if result, _ := limiter.Allow(context.Background(), "10.0.0.1", 0, time.Now()); !result.Allowed {
		t.Fatalf("expected zero limit to disable throttling")
	}
}

func TestMemoryLimiter_Prune(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Now()

	if _, err := limiter.Allow(ctx, "10.0.0.1", 1, now.Add(-time.Minute)); err != nil {
		t.Fatalf("allow: %v", err)
	}
	limiter.Prune(now)

	if len(limiter.counters) != 0 {
		t.Fatalf("expected stale counters to be pruned, got %d", len(limiter.counters))
	}
}
