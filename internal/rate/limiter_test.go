package rate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenBucketBurstThenBlocks(t *testing.T) {
	tb := NewTokenBucket(1, 2)
	defer tb.Stop()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("burst token %d: %v", i, err)
		}
	}
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := tb.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded after burst, got %v", err)
	}
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(50, 1)
	defer tb.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tb := NewTokenBucket(5, 0)
	tb.Stop()
	tb.Stop()
}

func TestNewDisabled(t *testing.T) {
	l, stop := New(0)
	defer stop()
	if _, ok := l.(Unlimited); !ok {
		t.Fatalf("expected Unlimited, got %T", l)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled context must still be observed, got %v", err)
	}
}
