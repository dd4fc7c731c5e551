// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package retry provides bounded retry and poll loops with pluggable backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt of a Do loop failed.
var ErrExhausted = errors.New("retry budget exhausted")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Backoff returns the wait before retry n (n starts at 1).
type Backoff func(retry int) time.Duration

// Policy bounds a loop: one initial attempt plus MaxRetries retries.
type Policy struct {
	MaxRetries int
	Backoff    Backoff
	Sleep      Sleeper
}

// Attempts reports the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

func (p Policy) wait(ctx context.Context, retry int) error {
	if p.Backoff == nil {
		return ctx.Err()
	}
	d := p.Backoff(retry)
	if d <= 0 {
		return ctx.Err()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, d)
}

// Constant waits d before every retry.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits step*retry, capped at max.
func Linear(step, max time.Duration) Backoff {
	return func(retry int) time.Duration {
		wait := step * time.Duration(retry)
		if max > 0 && wait > max {
			wait = max
		}
		return wait
	}
}

// Do calls fn until it succeeds or the policy is exhausted. The attempt
// index passed to fn starts at 0. The final error wraps ErrExhausted and
// the last failure. Errors wrapped with Permanent end the loop at once.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := p.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, err
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err
		if attempt+1 >= attempts {
			break
		}
		if werr := p.wait(ctx, attempt+1); werr != nil {
			return zero, werr
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Poll calls check until it reports done or the policy is exhausted.
// Check errors count as "not done yet". Poll returns false without error
// when the budget runs out; only context errors are returned.
func Poll(ctx context.Context, p Policy, check func(ctx context.Context, attempt int) (bool, error)) (bool, error) {
	attempts := p.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := check(ctx, attempt)
		if err == nil && done {
			return true, nil
		}
		if attempt+1 >= attempts {
			break
		}
		if werr := p.wait(ctx, attempt+1); werr != nil {
			return false, werr
		}
	}
	return false, nil
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
