// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vignette

import (
	"context"
	"errors"
	"time"

	"go.vignettes.dev/choreo/core"
	"go.vignettes.dev/choreo/harness"
	"go.vignettes.dev/choreo/vignette/store"
)

func seedSharedBooking(ctx context.Context, s *store.Store) error {
	if err := s.CreateEvent(ctx, eventID, 3); err != nil {
		return err
	}
	_, err := s.CreateBooking(ctx, "Alice", 1, eventID)
	return err
}

// growBooking reads Alice's booking, hands over, and extends it to two seats
// if nobody did so yet. The seat decrement and the versioned update commit together.
func growBooking(env Env, trailingYield bool) core.Body {
	return func(ctx context.Context, p *core.Participant) error {
		booking, err := env.Store.Booking(ctx, "Alice")
		if err != nil {
			return err
		}
		core.Observe(p, []int{booking.SeatCount, booking.LockVersion})

		p.YieldControl()

		if booking.SeatCount == 1 {
			err := env.Store.Transaction(ctx, func(tx *store.Store) error {
				if err := tx.DecrementAvailableSeats(ctx, eventID, 1); err != nil {
					return err
				}
				_, err := tx.UpdateBookingSeats(ctx, booking, 2)
				return err
			})
			if err != nil {
				return err
			}
		}

		if trailingYield {
			p.YieldControl()
		}
		return nil
	}
}

func optimisticLocking() Vignette {
	return Vignette{
		Name: "optimistic-locking",
		Description: "Bob and Alice both extend Alice's one-seat booking to two seats; " +
			"Bob's versioned update goes through, Alice's uses a stale lock version and is rolled back with her seat decrement",
		seed: seedSharedBooking,
		conduct: func(ctx context.Context, env Env) error {
			err := env.Harness.Conduct(
				core.Define("bob", growBooking(env, true)),
				core.Define("alice", growBooking(env, false)),
			)
			if err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "bob", nil) },
				func() error { return expectOutcome(env.Harness, "alice", store.ErrStaleBooking) },
				func() error { return expectSeats(ctx, env, 2, 2) },
			)
		},
	}
}

func optimisticLockingRetry() Vignette {
	return Vignette{
		Name: "optimistic-locking-retry",
		Description: "Same race, but Alice retries on a stale booking; " +
			"her replay skips the coordination point already cleared, rereads the extended booking and leaves it alone",
		seed: seedSharedBooking,
		conduct: func(ctx context.Context, env Env) error {
			err := env.Harness.Conduct(
				core.Define("bob", growBooking(env, true)),
				core.Define("alice", growBooking(env, false)).RetryingOn(store.ErrStaleBooking),
			)
			if err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "bob", nil) },
				func() error { return expectOutcome(env.Harness, "alice", nil) },
				func() error { return expectSeats(ctx, env, 2, 2) },
			)
		},
	}
}

// Timing of the exclusive-locking vignette.
const (
	lockHold  = 300 * time.Millisecond
	lockDelay = 200 * time.Millisecond
)

func exclusiveLocking() Vignette {
	return Vignette{
		Name: "exclusive-locking",
		Description: "Uncoordinated, Alice and Bob each book a seat unless the other already has one; " +
			"both take the database write lock before checking, so Bob waits for Alice to commit and only one seat is taken",
		seed: seedEvent(4),
		conduct: func(ctx context.Context, env Env) error {
			h := env.Harness
			alice := core.Define("alice", func(ctx context.Context, p *core.Participant) error {
				if err := handshake(h, p, "alice_started", "bob_started"); err != nil {
					return err
				}
				return bookUnlessBooked(ctx, env.Store, p, "Alice", "Bob", lockHold)
			}).Uncoordinated()

			bob := core.Define("bob", func(ctx context.Context, p *core.Participant) error {
				if err := handshake(h, p, "bob_started", "alice_started"); err != nil {
					return err
				}
				// Let Alice take the lock first.
				p.WaitFor(lockDelay)
				return bookUnlessBooked(ctx, env.Store, p, "Bob", "Alice", 0)
			}).Uncoordinated()

			if err := h.Conduct(alice, bob); err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(h, "bob", nil) },
				func() error { return expectOutcome(h, "alice", nil) },
				func() error { return expectSeats(ctx, env, 3, 1) },
				func() error { return expectNames(ctx, env, "Alice") },
			)
		},
	}
}

// handshake announces p through the synchronizer and waits for its peer.
func handshake(h *harness.Harness, p *core.Participant, mine, theirs string) error {
	h.Synchronizer.Set(mine, true)
	_, err := p.WaitUntil(func() bool { return h.Synchronizer.Has(theirs) })
	return err
}

func bookUnlessBooked(ctx context.Context, s *store.Store, p *core.Participant, customer, other string, hold time.Duration) error {
	return s.Exclusive(ctx, func(tx *store.Store) error {
		_, err := tx.Booking(ctx, other)
		if core.Observe(p, err == nil) {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if _, err := tx.CreateBooking(ctx, customer, 1, eventID); err != nil {
			return err
		}
		seats, err := tx.AvailableSeats(ctx, eventID)
		if err != nil {
			return err
		}
		if err := tx.SetAvailableSeats(ctx, eventID, seats-1); err != nil {
			return err
		}

		p.WaitFor(hold)
		return nil
	})
}
