// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vignette

import (
	"context"

	"go.vignettes.dev/choreo/core"
	"go.vignettes.dev/choreo/vignette/store"
)

func nonAtomic() Vignette {
	return Vignette{
		Name:        "non-atomic",
		Description: "Alice books a seat for herself and one for Bob in separate statements and gives up in between; her booking stays committed, Bob's never happens",
		seed:        seedEvent(2),
		conduct: func(ctx context.Context, env Env) error {
			alice := core.Define("alice", func(ctx context.Context, p *core.Participant) error {
				return bookBoth(ctx, env.Store)
			})

			if err := env.Harness.Conduct(alice); err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "alice", ErrAborted) },
				func() error { return expectNames(ctx, env, "Alice") },
			)
		},
	}
}

func atomic() Vignette {
	return Vignette{
		Name:        "atomic",
		Description: "Alice makes both bookings inside one transaction; giving up half way rolls her booking back, so neither is committed",
		seed:        seedEvent(2),
		conduct: func(ctx context.Context, env Env) error {
			alice := core.Define("alice", func(ctx context.Context, p *core.Participant) error {
				return env.Store.Transaction(ctx, func(tx *store.Store) error {
					return bookBoth(ctx, tx)
				})
			})

			if err := env.Harness.Conduct(alice); err != nil {
				return err
			}
			return expectAll(
				func() error { return expectOutcome(env.Harness, "alice", ErrAborted) },
				func() error { return expectNames(ctx, env) },
			)
		},
	}
}

// bookBoth books Alice and gives up before booking Bob.
func bookBoth(ctx context.Context, s *store.Store) error {
	if _, err := s.CreateBooking(ctx, "Alice", 1, eventID); err != nil {
		return err
	}
	if err := abort("Alice"); err != nil {
		return err
	}
	_, err := s.CreateBooking(ctx, "Bob", 1, eventID)
	return err
}
