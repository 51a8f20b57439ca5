package completion

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestErrorTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindRateLimited, true},
		{KindMalformed, false},
		{KindAuthFailure, false},
		{KindUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			e := &Error{Kind: tt.kind, Msg: "x"}
			if e.Transient() != tt.want {
				t.Errorf("Transient() = %v, want %v", e.Transient(), tt.want)
			}
			if IsTransient(e) != tt.want {
				t.Errorf("IsTransient() = %v, want %v", IsTransient(e), tt.want)
			}
		})
	}
}

func TestIsTransientWrapped(t *testing.T) {
	inner := &Error{Kind: KindRateLimited, Msg: "429"}
	wrapped := errors.Join(errors.New("outer"), inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped rate-limit error to be transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain error should not be transient")
	}
}

func TestRetryPolicySucceedsAfterTransient(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	out, err := p.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &Error{Kind: KindTimeout, Msg: "slow"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected 'ok', got %q", out)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyStopsOnFatal(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	_, err := p.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &Error{Kind: KindAuthFailure, Msg: "bad key"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fatal error should not be retried, got %d calls", calls)
	}
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindAuthFailure {
		t.Errorf("expected auth failure kind, got %v", err)
	}
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	_, err := p.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", &Error{Kind: KindRateLimited, Msg: "429"}
	})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if !IsTransient(err) {
		t.Error("exhaustion error should still unwrap to the transient cause")
	}
}

func TestRetryPolicyHonorsContextCancel(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := p.Do(ctx, func(context.Context) (string, error) {
		calls++
		return "", &Error{Kind: KindTimeout, Msg: "slow"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel, got %d", calls)
	}
}

func TestRetryPolicyZeroAttempts(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 0, BaseDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	out, err := p.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "once", nil
	})
	if err != nil || out != "once" {
		t.Fatalf("Do: %v, %q", err, out)
	}
	if calls != 1 {
		t.Errorf("attempt floor should be 1, got %d", calls)
	}
}
