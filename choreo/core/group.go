// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"sync"
	"time"
)

// CoordinationGroup is the mutex and condition shared by the coordinated
// participants of one Coordinator. A coordinated participant holds the mutex
// for its whole body and releases it only while parked on the condition.
type CoordinationGroup struct {
	mutex sync.Mutex
	cond  *sync.Cond

	closeOnce sync.Once
	closed    chan struct{}
}

// NewCoordinationGroup returns a group with nobody inside.
func NewCoordinationGroup() *CoordinationGroup {
	g := &CoordinationGroup{closed: make(chan struct{})}
	g.cond = sync.NewCond(&g.mutex)
	return g
}

// release wakes every parked participant. The condition is broadcast once
// right away and once more under the mutex, so that a participant that was
// between its flag check and its wait when release was called is not missed.
//
// The second broadcast polls for the mutex every interval and gives up when
// the group is closed, so a holder that never parks does not pin it. The
// returned channel is closed once it is done.
func (g *CoordinationGroup) release(interval time.Duration) <-chan struct{} {
	g.cond.Broadcast()

	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if g.mutex.TryLock() {
				g.cond.Broadcast()
				g.mutex.Unlock()
				return
			}
			select {
			case <-ticker.C:
			case <-g.closed:
				return
			}
		}
	}()
	return done
}

// close stops pending releases.
func (g *CoordinationGroup) close() {
	g.closeOnce.Do(func() { close(g.closed) })
}
