// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.vignettes.dev/choreo/logging"
	"go.vignettes.dev/choreo/waitable"
)

// DefaultGracePeriod is how long an interrupted participant gets to unwind.
const DefaultGracePeriod = 200 * time.Millisecond

// Config holds Coordinator dependencies. Zero values take defaults; set
// MaxRetries to NoRetries to disable replays.
type Config struct {
	Logger       log.FieldLogger
	WaitTimeout  time.Duration
	PollInterval time.Duration
	GracePeriod  time.Duration
	MaxRetries   int
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = log.StandardLogger()
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = waitable.DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = waitable.DefaultInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	return c
}

// Coordinator starts participants in a fixed order, lets them hand execution
// over to each other at coordination points and reports their outcomes.
//
// Owners must call Close when done, on every exit path:
//
//	c := core.NewCoordinator(cfg)
//	defer c.Close()
type Coordinator struct {
	id    uuid.UUID
	cfg   Config
	log   log.FieldLogger
	group *CoordinationGroup

	// mutex guards participants and closed, and serializes failure handling.
	mutex        sync.Mutex
	participants []*Participant
	closed       bool
}

// NewCoordinator returns a Coordinator with an empty coordination group.
func NewCoordinator(cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	id := uuid.New()
	return &Coordinator{
		id:    id,
		cfg:   cfg,
		log:   cfg.Logger.WithField(logging.RunKey, id.String()),
		group: NewCoordinationGroup(),
	}
}

// ID returns the run ID attached to every log entry of this coordinator.
func (c *Coordinator) ID() uuid.UUID {
	return c.id
}

// StartInOrder launches one goroutine per spec, in order, and does not launch
// the next one before the previous participant has passed its startup
// handshake. Configuration errors are reported before anything is launched.
func (c *Coordinator) StartInOrder(specs ...Spec) error {
	if err := c.validate(specs); err != nil {
		return err
	}

	for _, spec := range specs {
		p := c.register(spec)
		go c.run(p)

		_, err := waitable.Until(p.startup.Settled,
			waitable.WithTimeout(c.cfg.WaitTimeout),
			waitable.WithInterval(c.cfg.PollInterval),
			waitable.WithLogger(c.log),
		)
		if err != nil {
			return fmt.Errorf("start %s: %w", p.name, err)
		}
		if err := p.startup.Err(); err != nil {
			c.log.Debugf("%s ended before its startup handshake: %s", p.name, err)
		}
	}
	return nil
}

func (c *Coordinator) validate(specs []Spec) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return fmt.Errorf("%w: coordinator is closed", ErrConfiguration)
	}

	registered := make(map[string]bool, len(c.participants)+len(specs))
	for _, p := range c.participants {
		registered[p.name] = true
	}

	for _, spec := range specs {
		if spec.Name == "" {
			return fmt.Errorf("%w: participant name is required", ErrConfiguration)
		}
		if spec.Body == nil {
			return fmt.Errorf("%w: participant %s has no body", ErrConfiguration, spec.Name)
		}
		if registered[spec.Name] {
			return fmt.Errorf("%w: participant %s already registered", ErrConfiguration, spec.Name)
		}
		registered[spec.Name] = true
	}
	return nil
}

func (c *Coordinator) register(spec Spec) *Participant {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	index := len(c.participants) + 1
	logger := c.log.WithFields(log.Fields{
		logging.ParticipantKey: spec.Name,
		logging.IndexKey:       index,
	})
	p := newParticipant(spec, index, c.group, c.cfg.MaxRetries, logger)
	c.participants = append(c.participants, p)
	return p
}

func (c *Coordinator) run(p *Participant) {
	exited := true
	defer func() {
		if exited {
			c.fail(p, ErrParticipantExited)
		}
		p.finish()
	}()

	err := p.call()
	exited = false
	if err != nil {
		c.fail(p, err)
	}
}

// fail records err for p and lets every other participant run to completion
// instead of waiting for p at a coordination point.
func (c *Coordinator) fail(p *Participant, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	p.capture(err)
	p.log.Infof("-> raised %s", err)

	for _, other := range c.participants {
		if other != p {
			other.allowedToFinish.Store(true)
		}
	}
	c.group.release(c.cfg.PollInterval)
}

// WaitForCompletion polls until every participant has exited. When the
// deadline elapses every live participant is interrupted with
// ErrTimeoutExceeded and given the grace period to unwind; the timeout is
// returned unless waitable.WithTimeoutExpected is passed.
func (c *Coordinator) WaitForCompletion(opts ...waitable.Option) error {
	base := []waitable.Option{
		waitable.WithTimeout(c.cfg.WaitTimeout),
		waitable.WithInterval(c.cfg.PollInterval),
		waitable.WithLogger(c.log),
	}
	opts = append(append(base, opts...), waitable.WithOnTimeout(func() {
		c.interrupt(ErrTimeoutExceeded)
	}))

	if _, err := waitable.Until(c.finished, opts...); err != nil {
		return fmt.Errorf("wait for completion: %w", err)
	}
	return nil
}

func (c *Coordinator) finished() bool {
	return len(c.alive()) == 0
}

func (c *Coordinator) alive() []*Participant {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var alive []*Participant
	for _, p := range c.participants {
		if p.alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// interrupt injects err into every live participant and returns the ones
// still alive after the grace period.
func (c *Coordinator) interrupt(err error) []*Participant {
	targets := c.alive()
	for _, p := range targets {
		p.interrupt(err)
	}
	return c.awaitExit(targets)
}

// awaitExit keeps waking parked participants until targets exit or the
// grace period elapses. Broadcasting repeatedly covers a participant that
// checked for interruption right before the first broadcast.
func (c *Coordinator) awaitExit(targets []*Participant) []*Participant {
	deadline := time.Now().Add(c.cfg.GracePeriod)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		c.group.cond.Broadcast()

		var alive []*Participant
		for _, p := range targets {
			if p.alive() {
				alive = append(alive, p)
			}
		}
		if len(alive) == 0 || !time.Now().Before(deadline) {
			return alive
		}
		targets = alive

		select {
		case <-ticker.C:
		case <-targets[0].done:
		}
	}
}

// Outcome reports the outcome of the participant called name.
func (c *Coordinator) Outcome(name string) (Outcome, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, p := range c.participants {
		if p.name == name {
			return p.outcome(), true
		}
	}
	return Outcome{}, false
}

// Outcomes reports outcomes in the order of names; unknown names yield a zero Outcome.
func (c *Coordinator) Outcomes(names ...string) []Outcome {
	outcomes := make([]Outcome, len(names))
	for i, name := range names {
		outcomes[i], _ = c.Outcome(name)
	}
	return outcomes
}

// Names returns participant names in start order.
func (c *Coordinator) Names() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	names := make([]string, len(c.participants))
	for i, p := range c.participants {
		names[i] = p.name
	}
	return names
}

// Close interrupts every live participant with ErrParticipantKilled and waits
// for the grace period. Goroutines blocked outside the coordination points
// and not watching their context cannot be reclaimed; they are reported with
// ErrParticipantsLeaked.
func (c *Coordinator) Close() error {
	c.mutex.Lock()
	c.closed = true
	c.mutex.Unlock()

	leaked := c.interrupt(ErrParticipantKilled)
	c.group.close()
	if len(leaked) == 0 {
		return nil
	}

	names := make([]string, len(leaked))
	for i, p := range leaked {
		names[i] = p.name
	}
	c.log.Warnf("Participants still running after %s: %s", c.cfg.GracePeriod, strings.Join(names, ", "))
	return fmt.Errorf("%w: %s", ErrParticipantsLeaked, strings.Join(names, ", "))
}
