// Package retry implements the bounded retry/backoff policy used for search
// calls: classify each attempt, sleep, multiply the delay, try again.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Decision is the outcome of classifying one attempt.
type Decision int

const (
	// Done means the attempt succeeded.
	Done Decision = iota
	// Retry means the attempt failed in a way worth trying again.
	Retry
	// Fatal means the attempt failed and no further attempts are made.
	Fatal
)

func (d Decision) String() string {
	switch d {
	case Done:
		return "done"
	case Retry:
		return "retry"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// retryableStatus lists the HTTP statuses treated as transient.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Classify maps an attempt's HTTP status and transport error to a Decision.
// A status of 0 means no response was received.
func Classify(status int, err error) Decision {
	if status == 0 {
		if err == nil {
			return Done
		}
		if errors.Is(err, context.Canceled) {
			return Fatal
		}
		// Timeouts, refused connections, resets.
		return Retry
	}
	if status >= 200 && status < 300 {
		if err != nil {
			// Unreadable or empty body.
			return Retry
		}
		return Done
	}
	if retryableStatus[status] {
		return Retry
	}
	return Fatal
}

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy configures attempts and backoff.
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
	Factor       float64

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default policy values.
const (
	DefaultAttempts     = 3
	DefaultInitialDelay = 200 * time.Millisecond
	DefaultFactor       = 1.5
)

// DefaultPolicy returns the policy with default values.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:     DefaultAttempts,
		InitialDelay: DefaultInitialDelay,
		Factor:       DefaultFactor,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.Factor <= 0 {
		p.Factor = DefaultFactor
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Delays returns the wait before each attempt. The first attempt never
// waits; attempt k (k >= 2) waits InitialDelay * Factor^(k-2).
func (p Policy) Delays() []time.Duration {
	p = p.normalized()
	out := make([]time.Duration, p.Attempts)
	delay := float64(p.InitialDelay)
	for i := 1; i < p.Attempts; i++ {
		out[i] = time.Duration(delay)
		delay *= p.Factor
	}
	return out
}

// Attempt performs one try and reports the HTTP status observed (0 when no
// response arrived) and the error, if any.
type Attempt func(ctx context.Context, attempt int) (status int, err error)

// Do runs fn until it succeeds, fails fatally, or the attempts run out.
// It returns the number of attempts made and the final error. A fatal
// error is returned as is; exhaustion wraps the last error with ErrExhausted.
func (p Policy) Do(ctx context.Context, fn Attempt) (int, error) {
	p = p.normalized()
	delays := p.Delays()

	var lastErr error
	for i := 0; i < p.Attempts; i++ {
		if delays[i] > 0 {
			if err := p.Sleep(ctx, delays[i]); err != nil {
				return i, err
			}
		}

		status, err := fn(ctx, i+1)
		switch Classify(status, err) {
		case Done:
			return i + 1, nil
		case Fatal:
			if err == nil {
				err = fmt.Errorf("non-retryable status %d", status)
			}
			return i + 1, err
		case Retry:
			if err == nil {
				err = fmt.Errorf("retryable status %d", status)
			}
			lastErr = err
		}
	}
	return p.Attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
