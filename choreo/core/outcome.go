// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

// Status is the coarse state of a participant as seen by its Coordinator.
type Status int

const (
	StatusRunning Status = iota
	StatusSleeping
	StatusAborting
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSleeping:
		return "sleeping"
	case StatusAborting:
		return "aborted"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is derived on demand from a participant's goroutine state and
// captured error. Err is set if and only if Status is StatusFailed.
type Outcome struct {
	Status Status
	Err    error
}

// Succeeded reports whether the participant returned without error.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

func (o Outcome) String() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Status.String()
}
