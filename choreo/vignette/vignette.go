// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package vignette holds runnable choreographies that reproduce classic
// concurrency anomalies, and the locking schemes that avoid them, against
// the SQLite booking store.
package vignette

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.vignettes.dev/choreo/core"
	"go.vignettes.dev/choreo/harness"
	"go.vignettes.dev/choreo/vignette/store"
)

const eventID = "event_a"

var (
	// ErrUnexpected is returned when a vignette does not end the way it describes.
	ErrUnexpected = errors.New("unexpected result")
	// ErrAborted is raised by participants that give up half way through.
	ErrAborted = errors.New("booking aborted")
)

// Env is what a vignette runs against.
type Env struct {
	Harness *harness.Harness
	Store   *store.Store
}

// Vignette is a named choreography together with the result it must produce.
type Vignette struct {
	Name        string
	Description string

	seed    func(ctx context.Context, s *store.Store) error
	conduct func(ctx context.Context, env Env) error
}

// Run resets the store, seeds it, conducts the choreography and verifies its
// outcome. A verification failure wraps ErrUnexpected.
func (v Vignette) Run(ctx context.Context, env Env) error {
	if err := env.Store.Reset(ctx); err != nil {
		return err
	}
	if v.seed != nil {
		if err := v.seed(ctx, env.Store); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return v.conduct(ctx, env)
}

// Catalog returns every vignette in presentation order.
func Catalog() []Vignette {
	return []Vignette{
		nonAtomic(),
		atomic(),
		lostUpdate(),
		atomicDecrement(),
		checkConstraint(),
		optimisticLocking(),
		optimisticLockingRetry(),
		exclusiveLocking(),
	}
}

// Lookup finds a vignette by name.
func Lookup(name string) (Vignette, bool) {
	for _, v := range Catalog() {
		if v.Name == name {
			return v, true
		}
	}
	return Vignette{}, false
}

func seedEvent(seats int) func(context.Context, *store.Store) error {
	return func(ctx context.Context, s *store.Store) error {
		return s.CreateEvent(ctx, eventID, seats)
	}
}

func abort(customer string) error {
	return fmt.Errorf("%w after booking for %s", ErrAborted, customer)
}

// expect logs got on behalf of the observer and compares it with want.
func expect[T comparable](h *harness.Harness, what string, got, want T) error {
	h.Observe(got)
	if got != want {
		return fmt.Errorf("%w: %s is %v, want %v", ErrUnexpected, what, got, want)
	}
	return nil
}

func expectNames(ctx context.Context, env Env, want ...string) error {
	names, err := env.Store.BookingNames(ctx)
	if err != nil {
		return err
	}
	env.Harness.Observe(names)
	if !slices.Equal(names, want) {
		return fmt.Errorf("%w: bookings are %v, want %v", ErrUnexpected, names, want)
	}
	return nil
}

func expectSeats(ctx context.Context, env Env, available, taken int) error {
	seats, err := env.Store.AvailableSeats(ctx, eventID)
	if err != nil {
		return err
	}
	if err := expect(env.Harness, "available seats", seats, available); err != nil {
		return err
	}

	sum, err := env.Store.TakenSeats(ctx)
	if err != nil {
		return err
	}
	return expect(env.Harness, "taken seats", sum, taken)
}

// expectOutcome checks the outcome of name. A nil want expects success,
// anything else is matched with errors.Is.
func expectOutcome(h *harness.Harness, name string, want error) error {
	got := h.Outcome(name)
	switch {
	case want == nil && got.Status == core.StatusSuccess:
		return nil
	case want != nil && got.Status == core.StatusFailed && errors.Is(got.Err, want):
		return nil
	case want == nil:
		return fmt.Errorf("%w: %s ended with %s, want success", ErrUnexpected, name, got)
	default:
		return fmt.Errorf("%w: %s ended with %s, want %s", ErrUnexpected, name, got, want)
	}
}

func expectAll(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
