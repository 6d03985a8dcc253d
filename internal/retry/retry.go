// Package retry provides bounded exponential backoff for calls against
// quota-limited generative services.
//
// Only rate and quota failures are retried. Everything else propagates to
// the caller immediately and unchanged, so orchestrators can classify the
// original error.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// InitialDelay is the wait before the first retry. It doubles on each
	// subsequent one.
	InitialDelay time.Duration
}

// Default matches the upstream quota window: three retries waiting 2s, 4s, 8s.
var Default = Policy{MaxRetries: 3, InitialDelay: 2 * time.Second}

// sleep waits for d unless ctx ends first. Swapped out by tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op, retrying with doubling delays while it fails with a quota
// signature and budget remains. Each call chain backs off independently;
// there is no shared state between calls.
func Do(ctx context.Context, p Policy, name string, op func(context.Context) error) error {
	delay := p.InitialDelay
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsQuota(err) || attempt >= p.MaxRetries {
			return err
		}
		slog.Warn("quota limited, backing off",
			"op", name, "attempt", attempt+1, "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

// statusCoder is implemented by upstream errors carrying an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// IsQuota reports whether err looks like a rate or quota limit: an HTTP 429,
// or a message mentioning 429, quota, or RESOURCE_EXHAUSTED.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
