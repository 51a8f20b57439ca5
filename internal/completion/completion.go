// Package completion defines the contract to the external text-completion
// service and the retry discipline around it. Everything that talks to the
// service goes through a Client; transient failures (timeouts, rate limits)
// are retried with bounded exponential backoff, everything else fails fast.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Kind classifies a completion-service failure.
type Kind int

const (
	// KindUnavailable covers connection-level failures with no finer class.
	KindUnavailable Kind = iota
	// KindTimeout is a request deadline failure. Transient.
	KindTimeout
	// KindRateLimited is an HTTP 429 style rejection. Transient.
	KindRateLimited
	// KindMalformed means the service answered but the payload is unusable.
	KindMalformed
	// KindAuthFailure is an authentication or authorization rejection.
	KindAuthFailure
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	case KindAuthFailure:
		return "auth_failure"
	default:
		return "unavailable"
	}
}

// Error is a classified completion-service failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("completion %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the same call may succeed.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// IsTransient reports whether err is a transient completion failure.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Transient()
}

// Request is one completion call. Directives are persona phrasing
// instructions passed as system-level context; they shape tone, not scores.
type Request struct {
	Prompt      string
	Directives  []string
	Temperature float32
	JSONMode    bool
}

// Client is the abstract completion service.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// RetryPolicy bounds retries of transient failures. The retry loop is an
// explicit state machine (attempt counter plus growing delay) so the
// transient/fatal distinction stays visible at the call site.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the documented contract: up to 3 attempts with
// exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2.0}
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. The last error is returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		slog.Warn("transient completion failure, retrying",
			"attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return "", fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
