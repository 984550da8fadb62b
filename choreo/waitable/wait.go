// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package waitable

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds every wait that does not specify its own deadline.
	DefaultTimeout = 5 * time.Second
	// DefaultInterval is small enough not to dominate the latency of real waits.
	DefaultInterval = 50 * time.Millisecond
)

// ErrTimeoutExceeded is returned when a wait deadline elapses.
var ErrTimeoutExceeded = errors.New("wait period has expired")

// Options configure a single wait.
type Options struct {
	Timeout         time.Duration
	Interval        time.Duration
	TimeoutExpected bool
	OnTimeout       func()
	Logger          log.FieldLogger
	Context         context.Context
}

// Option mutates Options.
type Option func(*Options)

// WithTimeout sets the wait deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.Interval = d }
}

// WithTimeoutExpected turns an elapsed deadline into a normal (false, nil) return.
func WithTimeoutExpected() Option {
	return func(o *Options) { o.TimeoutExpected = true }
}

// WithOnTimeout registers a callback invoked once when the deadline elapses.
func WithOnTimeout(fn func()) Option {
	return func(o *Options) { o.OnTimeout = fn }
}

// WithLogger sets the logger receiving timeout diagnostics.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithContext aborts the wait with ctx.Err() once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *Options) { o.Context = ctx }
}

func newOptions(opts []Option) Options {
	o := Options{
		Timeout:  DefaultTimeout,
		Interval: DefaultInterval,
		Logger:   log.StandardLogger(),
		Context:  context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Until evaluates cond every interval until it holds or the deadline elapses.
//
// On deadline, an expected timeout invokes OnTimeout and returns (false, nil).
// An unexpected timeout dumps every goroutine stack, invokes OnTimeout and
// returns ErrTimeoutExceeded.
func Until(cond func() bool, opts ...Option) (bool, error) {
	o := newOptions(opts)
	deadline := time.Now().Add(o.Timeout)

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()

	for {
		if cond() {
			return true, nil
		}

		if time.Until(deadline) <= o.Interval {
			if o.TimeoutExpected {
				if o.OnTimeout != nil {
					o.OnTimeout()
				}
				return false, nil
			}

			DumpGoroutines(o.Logger)
			if o.OnTimeout != nil {
				o.OnTimeout()
			}
			return false, ErrTimeoutExceeded
		}

		select {
		case <-ticker.C:
		case <-o.Context.Done():
			return false, o.Context.Err()
		}
	}
}

// For blocks for d or until ctx is done.
func For(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
