// Package retry runs operations with pure exponential backoff.
//
// Delays start at the initial delay and are multiplied by the multiplier after every failed
// attempt, without jitter. Errors wrapped with Fatal stop the loop immediately.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults used when no option overrides them
const (
	DefaultMaxAttempts  = 5
	DefaultInitialDelay = time.Second
	DefaultMultiplier   = 2.0

	// maxDelay only guards against overflow; no realistic attempt count reaches it
	maxDelay = 24 * time.Hour
)

// Timer schedules the wait between attempts. Tests substitute it to observe delays without sleeping.
type Timer = backoff.Timer

// NotifyFunc is called after each failed attempt with the error and the delay before the next one
type NotifyFunc func(err error, next time.Duration)

type options struct {
	maxAttempts  int
	initialDelay time.Duration
	multiplier   float64
	timer        Timer
	notify       NotifyFunc
}

// Option configures WithExponentialBackoff
type Option func(*options)

// WithMaxAttempts sets the total number of attempts, including the first one
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithInitialDelay sets the delay after the first failed attempt
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) {
		o.initialDelay = d
	}
}

// WithMultiplier sets the growth factor between consecutive delays
func WithMultiplier(m float64) Option {
	return func(o *options) {
		o.multiplier = m
	}
}

// WithTimer replaces the wall-clock timer
func WithTimer(t Timer) Option {
	return func(o *options) {
		o.timer = t
	}
}

// WithNotify registers a callback invoked before every wait
func WithNotify(fn NotifyFunc) Option {
	return func(o *options) {
		o.notify = fn
	}
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-retryable
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// WithExponentialBackoff runs operation until it succeeds, returns a Fatal error, the attempts are
// exhausted or ctx is done. The error of the last attempt is returned on exhaustion.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	o := &options{
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
		multiplier:   DefaultMultiplier,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.initialDelay
	exp.Multiplier = o.multiplier
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxDelay
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(o.maxAttempts-1)), ctx)

	op := func() error {
		err := operation()
		if err != nil && IsFatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if o.notify != nil {
		notify = func(err error, next time.Duration) { o.notify(err, next) }
	}

	return backoff.RetryNotifyWithTimer(op, b, notify, o.timer)
}
