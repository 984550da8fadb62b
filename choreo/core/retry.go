// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import "errors"

const (
	// DefaultMaxRetries bounds replays of participants that do not set their own budget.
	DefaultMaxRetries = 25
	// NoRetries as a retry budget runs the body once even if it fails with a retryable error.
	NoRetries = -1
)

type retryPolicy struct {
	on  []error
	max int
}

func (r retryPolicy) matches(err error) bool {
	for _, target := range r.on {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// allows reports whether another attempt may follow the given failed one.
func (r retryPolicy) allows(attempt int) bool {
	return attempt <= r.max
}
