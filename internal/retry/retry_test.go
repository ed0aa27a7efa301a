package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3, Retryable: isTransient},
		func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != "ok" {
		t.Errorf("value = %q, want %q", v, "ok")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond, Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errTransient
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 {
		t.Errorf("value = %d, want 42", v)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond, Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, permanent
		})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Delay: time.Millisecond, Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("err = %v, want it to wrap %v", err, errTransient)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("err = %q, want it to name the attempt count", err.Error())
	}
}

func TestDo_DelaySeparatesAttempts(t *testing.T) {
	const delay = 20 * time.Millisecond
	var stamps []time.Time
	_, _ = Do(context.Background(), Policy{MaxAttempts: 2, Delay: delay, Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			stamps = append(stamps, time.Now())
			return 0, errTransient
		})
	if len(stamps) != 2 {
		t.Fatalf("attempts = %d, want 2", len(stamps))
	}
	if gap := stamps[1].Sub(stamps[0]); gap < delay {
		t.Errorf("gap between attempts = %v, want >= %v", gap, delay)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, Policy{MaxAttempts: 3, Delay: time.Hour, Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{Retryable: isTransient},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
