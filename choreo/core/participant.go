// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"go.vignettes.dev/choreo/waitable"
)

const (
	stateStarting int32 = iota
	stateRunning
	stateParked
)

// Participant runs one body on its own goroutine, optionally inside the
// coordination group and optionally replaying it on retryable errors.
//
// The blocking methods (YieldControl, WaitFor, WaitUntil) must only be called
// from the body's goroutine. When the participant is interrupted they do not
// return: the body is unwound back to the participant wrapper, running its
// deferred calls, and the injected error becomes the participant's outcome.
type Participant struct {
	name  string
	index int
	body  Body
	log   log.FieldLogger

	coordination *coordination
	retry        retryPolicy
	startup      Gate

	ctx    context.Context
	cancel context.CancelCauseFunc

	allowedToFinish atomic.Bool
	retrying        atomic.Bool
	attempt         atomic.Int32
	state           atomic.Int32

	mutex       sync.Mutex
	err         error
	interrupted error
	done        chan struct{}
}

func newParticipant(spec Spec, index int, group *CoordinationGroup, maxRetries int, logger log.FieldLogger) *Participant {
	if spec.WithoutCoordination {
		group = nil
	}
	switch {
	case spec.MaxRetries > 0:
		maxRetries = spec.MaxRetries
	case spec.MaxRetries < 0:
		maxRetries = 0
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &Participant{
		name:         spec.Name,
		index:        index,
		body:         spec.Body,
		log:          logger,
		coordination: &coordination{group: group},
		retry:        retryPolicy{on: spec.RetryOn, max: maxRetries},
		startup:      NewGate(1),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Name returns the participant name.
func (p *Participant) Name() string { return p.name }

// Index returns the 1-based start position of the participant.
func (p *Participant) Index() int { return p.index }

// Attempt returns the 1-based number of the attempt in progress.
func (p *Participant) Attempt() int { return int(p.attempt.Load()) }

// Retrying reports whether the current attempt is a replay that has not yet
// reached a coordination point beyond the ones cleared before.
func (p *Participant) Retrying() bool { return p.retrying.Load() }

// Logger returns the logger tagged with this participant.
func (p *Participant) Logger() log.FieldLogger { return p.log }

// YieldControl hands execution over to a peer parked at a coordination point
// and parks until a peer hands it back.
//
// It returns immediately for uncoordinated participants, once a peer has
// failed, and for points already cleared by an earlier attempt.
func (p *Participant) YieldControl() {
	p.coordination.yield(p)
}

// WaitFor sleeps for d.
func (p *Participant) WaitFor(d time.Duration) {
	previous := p.state.Swap(stateParked)
	err := waitable.For(p.ctx, d)
	p.state.Store(previous)
	if err != nil {
		p.checkInterrupted()
	}
}

// WaitUntil polls cond, see waitable.Until.
func (p *Participant) WaitUntil(cond func() bool, opts ...waitable.Option) (bool, error) {
	opts = append([]waitable.Option{waitable.WithLogger(p.log)}, opts...)
	opts = append(opts, waitable.WithContext(p.ctx))

	previous := p.state.Swap(stateParked)
	ok, err := waitable.Until(cond, opts...)
	p.state.Store(previous)
	if err != nil {
		p.checkInterrupted()
	}
	return ok, err
}

// Observe logs v as an observation of p and returns it.
func Observe[T any](p *Participant, v T) T {
	p.log.Infof("=> %v", v)
	return v
}

// call replays the coordinated body until it succeeds, fails with a
// non-retryable error or runs out of retries.
func (p *Participant) call() error {
	for {
		attempt := int(p.attempt.Add(1))

		err := p.coordination.run(p, p.invoke)
		if err == nil {
			// An interrupted participant never reports success.
			return p.interruption()
		}
		if p.interruption() != nil || !p.retry.matches(err) {
			return err
		}
		if !p.retry.allows(attempt) {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		p.log.Infof("-> raised %s", err)
		p.retrying.Store(true)
	}
}

// invoke runs the body once, converting panics into errors.
func (p *Participant) invoke() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if in, ok := r.(interruption); ok {
				err = in.err
				return
			}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	err = p.body(p.ctx, p)
	if err != nil && errors.Is(err, context.Canceled) {
		if cause := context.Cause(p.ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
	}
	return err
}

// interrupt injects err; the participant observes it at its next blocking point.
func (p *Participant) interrupt(err error) {
	p.mutex.Lock()
	if p.interrupted == nil {
		p.interrupted = err
	}
	p.mutex.Unlock()
	p.cancel(err)
}

func (p *Participant) interruption() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.interrupted
}

func (p *Participant) checkInterrupted() {
	if err := p.interruption(); err != nil {
		panic(interruption{err: err})
	}
}

func (p *Participant) capture(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *Participant) finish() {
	p.startup.CancelWithError(ErrParticipantExited)
	p.cancel(context.Canceled)
	close(p.done)
}

func (p *Participant) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Participant) setState(state int32) {
	p.state.Store(state)
}

func (p *Participant) outcome() Outcome {
	p.mutex.Lock()
	err, interrupted := p.err, p.interrupted
	p.mutex.Unlock()

	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	if !p.alive() {
		return Outcome{Status: StatusSuccess}
	}
	if interrupted != nil {
		return Outcome{Status: StatusAborting}
	}
	if p.state.Load() == stateRunning {
		return Outcome{Status: StatusRunning}
	}
	return Outcome{Status: StatusSleeping}
}
