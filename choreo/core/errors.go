// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"fmt"

	"go.vignettes.dev/choreo/waitable"
)

var (
	// ErrConfiguration is returned by StartInOrder before any goroutine is spawned.
	ErrConfiguration = errors.New("invalid participant configuration")

	// ErrTimeoutExceeded is returned, or recorded as an outcome, when a wait deadline elapses.
	ErrTimeoutExceeded = waitable.ErrTimeoutExceeded

	// ErrRetriesExhausted wraps the last retryable error once the retry budget is spent.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrParticipantKilled is recorded for participants unwound by Close.
	ErrParticipantKilled = errors.New("participant killed")

	// ErrParticipantExited is recorded when a body terminates its goroutine
	// without returning, e.g. through runtime.Goexit.
	ErrParticipantExited = errors.New("participant goroutine exited")

	// ErrParticipantsLeaked is returned by Close when some goroutines did not
	// unwind within the grace period. Only the participant goroutines leak;
	// the group's pending wake-ups stop at Close.
	ErrParticipantsLeaked = errors.New("participants did not exit")
)

// PanicError is recorded when a body panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// interruption carries an injected error from a blocking point back up to
// the participant wrapper.
type interruption struct {
	err error
}
