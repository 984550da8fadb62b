// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// Body is the work of one participant. It may call p.YieldControl any number
// of times and returns an error to fail the participant. ctx is canceled when
// the participant is interrupted.
type Body func(ctx context.Context, p *Participant) error

// Spec describes one participant handed to StartInOrder.
type Spec struct {
	// Name identifies the participant; it must be unique within a Coordinator.
	Name string
	Body Body

	// WithoutCoordination runs the participant outside the coordination
	// group: YieldControl becomes a no-op and no ordering with other
	// participants is implied past the startup handshake.
	WithoutCoordination bool

	// RetryOn lists errors, matched with errors.Is, that replay the body.
	RetryOn []error
	// MaxRetries bounds the replays; zero takes Config.MaxRetries and
	// NoRetries disables them.
	MaxRetries int
}

// Define returns a coordinated Spec.
func Define(name string, body Body) Spec {
	return Spec{Name: name, Body: body}
}

// Uncoordinated returns a copy of s running outside the coordination group.
func (s Spec) Uncoordinated() Spec {
	s.WithoutCoordination = true
	return s
}

// RetryingOn returns a copy of s replaying its body on any of errs.
func (s Spec) RetryingOn(errs ...error) Spec {
	s.RetryOn = append(append([]error{}, s.RetryOn...), errs...)
	return s
}

// WithMaxRetries returns a copy of s allowing at most n replays.
func (s Spec) WithMaxRetries(n int) Spec {
	s.MaxRetries = n
	return s
}
