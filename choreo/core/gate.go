// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"sync"
)

// Gate ...
type Gate interface {
	WalkThrough() error
	CancelWithError(error)
	Settled() bool
	Err() error
}

type gateImpl struct {
	count    int
	arrived  int
	mutex    sync.Mutex
	canceled bool
	err      error
}

// ErrGateIntegrity ...
var ErrGateIntegrity = errors.New("ErrGateIntegrity")

// ErrGateCanceled ...
var ErrGateCanceled = errors.New("ErrGateCanceled")

// WalkThrough walks through this gate without awaiting others.
func (g *gateImpl) WalkThrough() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.arrived == g.count {
		return ErrGateIntegrity
	}

	g.arrived++
	return nil
}

// CancelWithError settles a gate nobody walked through yet.
func (g *gateImpl) CancelWithError(err error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.arrived == g.count {
		return
	}
	g.canceled = true
	g.err = err
}

// Settled reports whether every expected arrival happened or the gate was canceled.
func (g *gateImpl) Settled() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.arrived == g.count || g.canceled
}

// Err returns the cancellation error of a canceled gate.
func (g *gateImpl) Err() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.canceled {
		return nil
	}
	if g.err != nil {
		return g.err
	}
	return ErrGateCanceled
}

// NewGate returns new gate instance.
func NewGate(count int) Gate {
	return &gateImpl{count: count}
}
