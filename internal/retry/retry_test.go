package retry

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   Decision
	}{
		{"ok", http.StatusOK, nil, Done},
		{"created", http.StatusCreated, nil, Done},
		{"ok with unusable body", http.StatusOK, errors.New("empty response body"), Retry},
		{"rate limited", http.StatusTooManyRequests, nil, Retry},
		{"server error", http.StatusInternalServerError, nil, Retry},
		{"bad gateway", http.StatusBadGateway, nil, Retry},
		{"unavailable", http.StatusServiceUnavailable, nil, Retry},
		{"gateway timeout", http.StatusGatewayTimeout, nil, Retry},
		{"unauthorized", http.StatusUnauthorized, nil, Fatal},
		{"bad request", http.StatusBadRequest, nil, Fatal},
		{"not implemented", http.StatusNotImplemented, nil, Fatal},
		{"network error", 0, errors.New("dial tcp: connection refused"), Retry},
		{"deadline", 0, context.DeadlineExceeded, Retry},
		{"canceled", 0, context.Canceled, Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.status, tt.err); got != tt.want {
				t.Errorf("Classify(%d, %v) = %v, want %v", tt.status, tt.err, got, tt.want)
			}
		})
	}
}

func TestPolicy_Delays(t *testing.T) {
	p := Policy{Attempts: 4, InitialDelay: 200 * time.Millisecond, Factor: 1.5}
	want := []time.Duration{0, 200 * time.Millisecond, 300 * time.Millisecond, 450 * time.Millisecond}
	if got := p.Delays(); !reflect.DeepEqual(got, want) {
		t.Errorf("Delays() = %v, want %v", got, want)
	}

	if got := (Policy{}).Delays(); !reflect.DeepEqual(got, []time.Duration{0}) {
		t.Errorf("zero policy Delays() = %v, want single attempt", got)
	}
}

// recordingSleep captures requested waits without sleeping.
func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestPolicy_Do(t *testing.T) {
	t.Run("succeeds on last attempt", func(t *testing.T) {
		var waits []time.Duration
		p := DefaultPolicy()
		p.Sleep = recordingSleep(&waits)

		n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) (int, error) {
			if attempt < 3 {
				return http.StatusServiceUnavailable, nil
			}
			return http.StatusOK, nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if n != 3 {
			t.Errorf("attempts = %d, want 3", n)
		}
		want := []time.Duration{200 * time.Millisecond, 300 * time.Millisecond}
		if !reflect.DeepEqual(waits, want) {
			t.Errorf("waits = %v, want %v", waits, want)
		}
	})

	t.Run("fatal stops immediately", func(t *testing.T) {
		var waits []time.Duration
		p := DefaultPolicy()
		p.Sleep = recordingSleep(&waits)
		fatal := errors.New("HTTP 401")

		n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) (int, error) {
			return http.StatusUnauthorized, fatal
		})
		if !errors.Is(err, fatal) {
			t.Fatalf("Do() error = %v, want %v", err, fatal)
		}
		if errors.Is(err, ErrExhausted) {
			t.Error("fatal error should not be reported as exhausted")
		}
		if n != 1 || len(waits) != 0 {
			t.Errorf("attempts = %d, waits = %v; want 1 attempt, no waits", n, waits)
		}
	})

	t.Run("exhausted returns last error", func(t *testing.T) {
		p := DefaultPolicy()
		p.Sleep = func(context.Context, time.Duration) error { return nil }
		last := errors.New("timeout on attempt 3")

		n, err := p.Do(context.Background(), func(ctx context.Context, attempt int) (int, error) {
			if attempt == 3 {
				return 0, last
			}
			return http.StatusTooManyRequests, nil
		})
		if !errors.Is(err, ErrExhausted) || !errors.Is(err, last) {
			t.Fatalf("Do() error = %v, want exhausted wrapping last error", err)
		}
		if n != 3 {
			t.Errorf("attempts = %d, want 3", n)
		}
	})

	t.Run("cancelled sleep aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := Policy{Attempts: 3, InitialDelay: time.Hour, Factor: 2}

		calls := 0
		_, err := p.Do(ctx, func(ctx context.Context, attempt int) (int, error) {
			calls++
			return http.StatusBadGateway, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do() error = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}
