package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// recordSleeps replaces the backoff sleep with a recorder for the duration of
// the test.
func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &delays
}

type statErr struct{ code int }

func (e statErr) Error() string { return fmt.Sprintf("status %d", e.code) }

func (e statErr) StatusCode() int { return e.code }

func TestDoRetriesQuotaWithDoublingDelays(t *testing.T) {
	delays := recordSleeps(t)

	calls := 0
	err := Do(context.Background(), Default, "test", func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("RESOURCE_EXHAUSTED: try later")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Fatalf("delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestDoPropagatesNonQuotaImmediately(t *testing.T) {
	delays := recordSleeps(t)

	calls := 0
	wantErr := errors.New("schema drift")
	err := Do(context.Background(), Default, "test", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no delays, got %v", *delays)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	delays := recordSleeps(t)

	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 2, InitialDelay: time.Second}, "test",
		func(ctx context.Context) error {
			calls++
			return statErr{code: 429}
		})
	if err == nil {
		t.Fatal("expected error after budget exhaustion")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts (initial + 2 retries), got %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*delays) != len(want) || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Fatalf("expected delays %v, got %v", want, *delays)
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }
	t.Cleanup(func() { sleep = orig })

	calls := 0
	err := Do(context.Background(), Default, "test", func(ctx context.Context) error {
		calls++
		return errors.New("quota exceeded")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one attempt before cancellation, got %d", calls)
	}
}

func TestIsQuota(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 429", statErr{code: 429}, true},
		{"wrapped status 429", fmt.Errorf("call failed: %w", statErr{code: 429}), true},
		{"status 500", statErr{code: 500}, false},
		{"message 429", errors.New("got 429 from upstream"), true},
		{"message quota", errors.New("quota exceeded for project"), true},
		{"message resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuota(tt.err); got != tt.want {
				t.Fatalf("IsQuota(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
