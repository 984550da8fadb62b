// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vignette

import (
	"context"

	"go.vignettes.dev/choreo/core"
	"go.vignettes.dev/choreo/vignette/store"
)

func lostUpdate() Vignette {
	return Vignette{
		Name: "lost-update",
		Description: "Bob and Alice both read two available seats, book one and write back the value they read minus one; " +
			"Alice overwrites Bob's decrement, leaving one seat available while two are booked",
		seed: seedEvent(2),
		conduct: func(ctx context.Context, env Env) error {
			body := func(customer string) core.Body {
				return func(ctx context.Context, p *core.Participant) error {
					seats, err := env.Store.AvailableSeats(ctx, eventID)
					if err != nil {
						return err
					}
					core.Observe(p, seats)

					p.YieldControl()

					if _, err := env.Store.CreateBooking(ctx, customer, 1, eventID); err != nil {
						return err
					}
					if err := env.Store.SetAvailableSeats(ctx, eventID, seats-1); err != nil {
						return err
					}

					p.YieldControl()
					return nil
				}
			}

			err := env.Harness.Conduct(
				core.Define("bob", body("Bob")),
				core.Define("alice", body("Alice")),
			)
			if err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "bob", nil) },
				func() error { return expectOutcome(env.Harness, "alice", nil) },
				func() error { return expectSeats(ctx, env, 1, 2) },
			)
		},
	}
}

func atomicDecrement() Vignette {
	return Vignette{
		Name:        "atomic-decrement",
		Description: "Bob and Alice decrement the available seats in a single statement; no update is lost and both seats are gone",
		seed:        seedEvent(2),
		conduct: func(ctx context.Context, env Env) error {
			err := env.Harness.Conduct(
				core.Define("bob", decrementAndBook(env, "Bob")),
				core.Define("alice", decrementAndBook(env, "Alice")),
			)
			if err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "bob", nil) },
				func() error { return expectOutcome(env.Harness, "alice", nil) },
				func() error { return expectSeats(ctx, env, 0, 2) },
			)
		},
	}
}

func checkConstraint() Vignette {
	return Vignette{
		Name: "check-constraint",
		Description: "Bob and Alice decrement the last available seat in a single statement; " +
			"the CHECK constraint on available_seats rejects Alice's decrement and rolls back her booking",
		seed: seedEvent(1),
		conduct: func(ctx context.Context, env Env) error {
			err := env.Harness.Conduct(
				core.Define("bob", decrementAndBook(env, "Bob")),
				core.Define("alice", decrementAndBook(env, "Alice")),
			)
			if err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "bob", nil) },
				func() error { return expectOutcome(env.Harness, "alice", store.ErrSoldOut) },
				func() error { return expectSeats(ctx, env, 0, 1) },
				func() error { return expectNames(ctx, env, "Bob") },
			)
		},
	}
}

func decrementAndBook(env Env, customer string) core.Body {
	return func(ctx context.Context, p *core.Participant) error {
		err := env.Store.Transaction(ctx, func(tx *store.Store) error {
			if err := tx.DecrementAvailableSeats(ctx, eventID, 1); err != nil {
				return err
			}
			_, err := tx.CreateBooking(ctx, customer, 1, eventID)
			return err
		})
		if err != nil {
			return err
		}

		p.YieldControl()
		return nil
	}
}
