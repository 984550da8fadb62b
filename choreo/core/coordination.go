// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import "time"

// coordination wraps one attempt of a body in the group mutex and implements
// the coordination point. A nil group makes both a pass-through.
//
// passed counts the coordination points cleared by the farthest attempt so
// far; cursor counts the points reached by the current attempt. A replayed
// attempt skips a point while cursor <= passed. Both are only touched from the
// participant goroutine.
type coordination struct {
	group  *CoordinationGroup
	passed int
	cursor int
}

func (c *coordination) coordinated() bool {
	return c.group != nil
}

// run executes attempt holding the group mutex for its whole duration.
func (c *coordination) run(p *Participant, attempt func() error) error {
	if c.coordinated() {
		p.setState(stateParked)
		c.group.mutex.Lock()
		defer c.group.mutex.Unlock()
	}
	p.setState(stateRunning)

	c.cursor = 0
	if !p.startup.Settled() {
		// Lets the coordinator launch the next participant.
		_ = p.startup.WalkThrough()
	}

	if err := p.interruption(); err != nil {
		return err
	}

	if err := attempt(); err != nil {
		return err
	}

	// A peer parked at its last coordination point would otherwise wait
	// forever for a partner that already finished.
	if c.coordinated() {
		c.group.cond.Signal()
	}
	return nil
}

func (c *coordination) yield(p *Participant) {
	if !c.coordinated() || p.allowedToFinish.Load() {
		return
	}

	c.cursor++
	if c.cursor <= c.passed {
		p.log.Debugf("Skipping coordination point %d cleared before retry", c.cursor)
		return
	}
	c.passed = c.cursor
	p.retrying.Store(false)

	p.checkInterrupted()

	start := time.Now()
	c.group.cond.Signal()
	p.setState(stateParked)
	c.group.cond.Wait()
	p.setState(stateRunning)

	p.log.Debugf("Waited for %s", time.Since(start))
	p.checkInterrupted()
}
