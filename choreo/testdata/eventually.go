// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package testdata holds helpers shared by tests of the choreo packages.
package testdata

import (
	"testing"
	"time"

	"go.vignettes.dev/choreo/waitable"
)

// Eventually polls cond every interval until it reports true or timeout
// elapses. The last error cond returned is logged when it never does.
func Eventually(t *testing.T, cond func() (bool, error), interval, timeout time.Duration) bool {
	t.Helper()

	var last error
	ok, err := waitable.Until(func() bool {
		done, err := cond()
		last = err
		return done
	}, waitable.WithInterval(interval), waitable.WithTimeout(timeout), waitable.WithTimeoutExpected())

	if err != nil {
		t.Logf("polling stopped: %v", err)
	}
	if !ok && last != nil {
		t.Logf("condition still false after %s: %v", timeout, last)
	}
	return ok
}
