// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package harness wraps a Coordinator with the registers and logger a
// choreography usually needs, and runs it end to end.
package harness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"go.vignettes.dev/choreo/config"
	"go.vignettes.dev/choreo/core"
	"go.vignettes.dev/choreo/logging"
	"go.vignettes.dev/choreo/register"
	"go.vignettes.dev/choreo/waitable"
)

// ErrNotConducted is returned by operations that need a choreography to be started first.
var ErrNotConducted = errors.New("no choreography has been started")

// ConfigFrom derives the coordinator configuration from runner settings.
// Zero MaxRetries in settings means no retries.
func ConfigFrom(settings config.Settings, logger log.FieldLogger) core.Config {
	maxRetries := settings.MaxRetries
	if maxRetries == 0 {
		maxRetries = core.NoRetries
	}
	return core.Config{
		Logger:       logger,
		WaitTimeout:  settings.WaitTimeout,
		PollInterval: settings.PollInterval,
		GracePeriod:  settings.GracePeriod,
		MaxRetries:   maxRetries,
	}
}

// Harness runs one choreography at a time. Starting a new one closes the
// previous coordinator.
type Harness struct {
	// Buffer collects observations made by participants.
	Buffer *register.Register
	// Synchronizer carries ad-hoc signals between uncoordinated participants.
	Synchronizer *register.Register

	logger *log.Logger
	cfg    core.Config

	mutex       sync.Mutex
	coordinator *core.Coordinator
}

// New returns a Harness logging to logger. cfg.Logger is replaced by logger.
func New(logger *log.Logger, cfg core.Config) *Harness {
	cfg.Logger = logger
	return &Harness{
		Buffer:       register.New(),
		Synchronizer: register.New(),
		logger:       logger,
		cfg:          cfg,
	}
}

// Logger returns the harness logger.
func (h *Harness) Logger() *log.Logger {
	return h.logger
}

// Coordinator returns the coordinator of the current choreography, or nil.
func (h *Harness) Coordinator() *core.Coordinator {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.coordinator
}

// Conduct starts specs in order, waits for all of them to finish and closes
// the coordinator on every path, so nothing it started outlives the call.
// Outcomes stay available until the next choreography is started.
func (h *Harness) Conduct(specs ...core.Spec) error {
	err := h.ConductAsynchronously(specs...)
	if err == nil {
		err = h.WaitForCompletion()
	}
	return errors.Join(err, h.Close())
}

// ConductAsynchronously starts specs in order and returns once the last one
// has passed its startup handshake.
func (h *Harness) ConductAsynchronously(specs ...core.Spec) error {
	if err := h.Close(); err != nil {
		h.logger.WithError(err).Warn("Previous choreography did not shut down")
	}

	c := core.NewCoordinator(h.cfg)
	h.mutex.Lock()
	h.coordinator = c
	h.mutex.Unlock()

	return c.StartInOrder(specs...)
}

// WaitForCompletion waits for the current choreography to finish.
func (h *Harness) WaitForCompletion(opts ...waitable.Option) error {
	c := h.Coordinator()
	if c == nil {
		return ErrNotConducted
	}
	return c.WaitForCompletion(opts...)
}

// WaitForTimeout waits d for the current choreography and interrupts
// whatever is left. The timeout is expected and not reported as an error.
func (h *Harness) WaitForTimeout(d time.Duration) error {
	return h.WaitForCompletion(waitable.WithTimeout(d), waitable.WithTimeoutExpected())
}

// Outcome reports the outcome of the participant called name.
// Unknown names and a missing choreography yield a zero Outcome.
func (h *Harness) Outcome(name string) core.Outcome {
	c := h.Coordinator()
	if c == nil {
		return core.Outcome{}
	}
	outcome, _ := c.Outcome(name)
	return outcome
}

// Outcomes reports outcomes in the order of names.
func (h *Harness) Outcomes(names ...string) []core.Outcome {
	c := h.Coordinator()
	if c == nil {
		return make([]core.Outcome, len(names))
	}
	return c.Outcomes(names...)
}

// Observe logs v on behalf of the observer and returns it.
func (h *Harness) Observe(v any) any {
	h.logger.Infof("=> %v", v)
	return v
}

// Record logs v as an observation of p, or of the observer when p is nil,
// and appends it to the buffer under key.
func (h *Harness) Record(p *core.Participant, key string, v any) any {
	if p == nil {
		h.Observe(v)
	} else {
		core.Observe(p, v)
	}
	h.Buffer.Set(key, v)
	return v
}

// Repeat runs fn times times. Every run but the last is silenced, and both
// registers are cleared after each run. The first failing run stops the loop.
func (h *Harness) Repeat(times int, fn func(run int) error) error {
	for run := 1; run <= times; run++ {
		var err error
		if run < times {
			logging.Silence(h.logger, func() { err = fn(run) })
		} else {
			err = fn(run)
		}
		h.Buffer.Reset()
		h.Synchronizer.Reset()
		if err != nil {
			return fmt.Errorf("run %d of %d: %w", run, times, err)
		}
	}
	return nil
}

// Close shuts down the current choreography, if any.
func (h *Harness) Close() error {
	c := h.Coordinator()
	if c == nil {
		return nil
	}
	return c.Close()
}
