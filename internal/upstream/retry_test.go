package upstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestRetryPolicy_ExponentialDelays(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   func(error) bool { return true },
		Sleep:       sleeper.sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &Error{Status: 503, Message: "overloaded"}
		}
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d backoff sleeps, got %d", len(want), len(sleeper.delays))
	}
	for i, d := range want {
		if sleeper.delays[i] != d {
			t.Errorf("delay %d = %v, want %v", i, sleeper.delays[i], d)
		}
	}
}

func TestRetryPolicy_NonRetryableStopsImmediately(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := DefaultRetryPolicy()
	p.Sleep = sleeper.sleep

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return &Error{Status: 400, Message: "bad request"}
	}, nil)

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", sleeper.delays)
	}
}

func TestRetryPolicy_ExhaustionReturnsLastError(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Retryable:   DefaultRetryable,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return &Error{Status: 500 + calls, Message: "still down"}
	}, nil)

	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if ue.Status != 503 {
		t.Errorf("expected the final attempt's error (503), got %d", ue.Status)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{&Error{Status: 500}, true},
		{&Error{Status: 503}, true},
		{&Error{Status: 400}, false},
		{&Error{Status: 429}, false},
		{&Error{Status: 200, Message: "response missing message content"}, false},
		{ErrTimeout, false},
		{ErrMissingCredential, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := DefaultRetryable(tt.err); got != tt.expected {
			t.Errorf("DefaultRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
		}
	}
}
