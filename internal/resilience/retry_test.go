package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), DefaultRetryConfig(), func(_ context.Context) (string, error) {
		calls++
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hello" {
		t.Errorf("expected hello, got %q", val)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterRetry(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("temporary"), 503)
		}
		return calls, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 3 {
		t.Errorf("expected 3, got %d", val)
	}
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("still down"), 502)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_NonTransientStopsImmediately(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("invalid api key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call for non-transient error, got %d", calls)
	}
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	parseErr := errors.New("malformed response")
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(err error) bool {
		return IsTransient(err) || errors.Is(err, parseErr)
	}

	var calls int
	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", parseErr
		}
		return "parsed", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "parsed" {
		t.Errorf("expected parsed, got %q", val)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	_, err := DoVal(ctx, fastRetryConfig(), func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("temporary"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancellation, got %d", calls)
	}
}

func TestDoVal_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetryConfig()
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	var calls int
	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("temporary"), 503)
	})

	if len(attempts) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %v", attempts)
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestDo_Wraps(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetryConfig(), func(_ context.Context) error {
		calls++
		if calls < 2 {
			return NewTransientError(errors.New("temporary"), 429)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Multiplier:     10.0,
	}

	d := computeBackoff(5, cfg)
	// Jitter is zero when JitterFraction is zero.
	if d != 500*time.Millisecond {
		t.Errorf("expected backoff capped at 500ms, got %s", d)
	}
}

func TestComputeBackoff_JitterStaysInRange(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}

	for i := 0; i < 100; i++ {
		d := computeBackoff(0, cfg)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("backoff %s outside jitter range [75ms, 125ms]", d)
		}
	}
}
