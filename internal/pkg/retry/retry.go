// Package retry runs an operation a bounded number of times with
// exponentially growing waits between attempts.
package retry

import (
	"context"
	"log/slog"
	"time"

	"cinema-booking/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted marks the last error once every attempt has been used.
var ErrExhausted = errs.New("retry attempts exhausted")

const maxInterval = 5 * time.Second

type Policy struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64

	// Jitter is the randomization factor applied to every wait (0 disables it).
	Jitter float64

	// Logger receives one warning per retried attempt. Nil discards them.
	Logger *slog.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		BaseDelay:  50 * time.Millisecond,
		Multiplier: 2,
	}
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = 0
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	return p
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	return b
}

// Do calls fn until it succeeds or returns an error that retryable rejects.
// fn receives the 1-based attempt number. When all attempts fail with
// retryable errors the last one is returned marked with ErrExhausted.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context, attempt int) error) error {
	p = p.normalized()

	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if p.Attempts == 1 {
		// WithMaxRetries treats zero as unbounded
		err := op()
		return finish(err, retryable)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(p.Attempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		p.Logger.Warn("retrying after retryable error",
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())
	}

	return finish(backoff.RetryNotify(op, b, notify), retryable)
}

func finish(err error, retryable func(error) bool) error {
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errs.As(err, &permanent) {
		err = permanent.Err
	}
	if retryable(err) {
		return errs.Mark(err, ErrExhausted)
	}
	return err
}
