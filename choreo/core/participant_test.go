// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errRetryable = errors.New("retryable")
	errFatal     = errors.New("fatal")
)

func TestRetryReplaysBodyUntilSuccess(t *testing.T) {
	c, hook := newTestCoordinator(t)

	var sideEffects int32
	flaky := Define("flaky", func(ctx context.Context, p *Participant) error {
		if atomic.AddInt32(&sideEffects, 1) < 3 {
			return errRetryable
		}
		return nil
	}).RetryingOn(errRetryable)

	require.NoError(t, c.StartInOrder(flaky))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, Outcome{Status: StatusSuccess}, requireOutcome(t, c, "flaky"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&sideEffects))
	assert.Equal(t, 3, c.participants[0].Attempt())

	raised := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "-> raised retryable" {
			raised++
		}
	}
	assert.Equal(t, 2, raised)
}

func TestRetryMatchesWrappedErrors(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var attempts int32
	require.NoError(t, c.StartInOrder(Define("wrapped", func(ctx context.Context, p *Participant) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.Join(errors.New("update booking"), errRetryable)
		}
		return nil
	}).RetryingOn(errFatal, errRetryable)))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, Outcome{Status: StatusSuccess}, requireOutcome(t, c, "wrapped"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestRetrySkipsClearedCoordinationPoints(t *testing.T) {
	c, _ := newTestCoordinator(t)
	tr := &trace{}

	alice := Define("alice", func(ctx context.Context, p *Participant) error {
		tr.add("alice attempt %d", p.Attempt())
		p.YieldControl()
		tr.add("alice resumed %d", p.Attempt())
		if p.Attempt() == 1 {
			return errRetryable
		}
		tr.add("alice done")
		return nil
	}).RetryingOn(errRetryable)

	bob := Define("bob", func(ctx context.Context, p *Participant) error {
		tr.add("bob started")
		p.YieldControl()
		tr.add("bob done")
		return nil
	})

	require.NoError(t, c.StartInOrder(alice, bob))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, []string{
		"alice attempt 1",
		"bob started",
		"alice resumed 1",
		"alice attempt 2",
		// The replayed coordination point is skipped, alice does not hand over to bob.
		"alice resumed 2",
		"alice done",
		"bob done",
	}, tr.get())
	assert.Equal(t, []Outcome{{Status: StatusSuccess}, {Status: StatusSuccess}}, c.Outcomes("alice", "bob"))
}

func TestRetryBlocksAtNewCoordinationPoints(t *testing.T) {
	c, _ := newTestCoordinator(t)
	tr := &trace{}

	alice := Define("alice", func(ctx context.Context, p *Participant) error {
		tr.add("alice attempt %d", p.Attempt())
		p.YieldControl()
		if p.Attempt() == 1 {
			return errRetryable
		}
		assert.True(t, p.Retrying())
		p.YieldControl()
		assert.False(t, p.Retrying())
		tr.add("alice done")
		return nil
	}).RetryingOn(errRetryable)

	bob := Define("bob", func(ctx context.Context, p *Participant) error {
		tr.add("bob started")
		p.YieldControl()
		tr.add("bob done")
		return nil
	})

	require.NoError(t, c.StartInOrder(alice, bob))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, []string{
		"alice attempt 1",
		"bob started",
		"alice attempt 2",
		"bob done",
		"alice done",
	}, tr.get())
}

func TestRetriesExhausted(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var attempts int32
	require.NoError(t, c.StartInOrder(Define("hopeless", func(ctx context.Context, p *Participant) error {
		atomic.AddInt32(&attempts, 1)
		return errRetryable
	}).RetryingOn(errRetryable).WithMaxRetries(2)))
	require.NoError(t, c.WaitForCompletion())

	outcome := requireOutcome(t, c, "hopeless")
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, ErrRetriesExhausted)
	assert.ErrorIs(t, outcome.Err, errRetryable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNonRetryableErrorIsNotRetried(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var attempts int32
	require.NoError(t, c.StartInOrder(Define("fragile", func(ctx context.Context, p *Participant) error {
		atomic.AddInt32(&attempts, 1)
		return errFatal
	}).RetryingOn(errRetryable)))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, Outcome{Status: StatusFailed, Err: errFatal}, requireOutcome(t, c, "fragile"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestInterruptedParticipantIsNotRetried(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var attempts int32
	require.NoError(t, c.StartInOrder(Define("sleepy", func(ctx context.Context, p *Participant) error {
		atomic.AddInt32(&attempts, 1)
		p.WaitFor(time.Hour)
		return nil
	}).RetryingOn(ErrParticipantKilled)))

	require.NoError(t, c.Close())
	assert.ErrorIs(t, requireOutcome(t, c, "sleepy").Err, ErrParticipantKilled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestUncoordinatedYieldIsNoop(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var yields int32
	require.NoError(t, c.StartInOrder(Define("solo", func(ctx context.Context, p *Participant) error {
		for i := 0; i < 3; i++ {
			p.YieldControl()
			atomic.AddInt32(&yields, 1)
		}
		return nil
	}).Uncoordinated()))
	require.NoError(t, c.WaitForCompletion())

	assert.Equal(t, int32(3), atomic.LoadInt32(&yields))
	assert.Equal(t, Outcome{Status: StatusSuccess}, requireOutcome(t, c, "solo"))
}

func TestSpecBuilders(t *testing.T) {
	base := Define("a", noop)
	derived := base.Uncoordinated().RetryingOn(errRetryable).RetryingOn(errFatal).WithMaxRetries(4)

	assert.False(t, base.WithoutCoordination)
	assert.Empty(t, base.RetryOn)
	assert.True(t, derived.WithoutCoordination)
	assert.Equal(t, []error{errRetryable, errFatal}, derived.RetryOn)
	assert.Equal(t, 4, derived.MaxRetries)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Outcome{Status: StatusSuccess}.String())
	assert.Equal(t, "aborted", Outcome{Status: StatusAborting}.String())
	assert.Equal(t, "boom", Outcome{Status: StatusFailed, Err: errBoom}.String())
	assert.True(t, Outcome{Status: StatusSuccess}.Succeeded())
	assert.False(t, Outcome{Status: StatusSleeping}.Succeeded())
}

func TestNoRetriesRunsBodyOnce(t *testing.T) {
	c, _ := newTestCoordinator(t)

	var attempts int32
	require.NoError(t, c.StartInOrder(Define("once", func(ctx context.Context, p *Participant) error {
		atomic.AddInt32(&attempts, 1)
		return errRetryable
	}).RetryingOn(errRetryable).WithMaxRetries(NoRetries)))
	require.NoError(t, c.WaitForCompletion())

	outcome := requireOutcome(t, c, "once")
	assert.ErrorIs(t, outcome.Err, ErrRetriesExhausted)
	assert.ErrorIs(t, outcome.Err, errRetryable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultGracePeriod, cfg.GracePeriod)

	assert.Zero(t, Config{MaxRetries: NoRetries}.withDefaults().MaxRetries)
	assert.Equal(t, 3, Config{MaxRetries: 3}.withDefaults().MaxRetries)
}
