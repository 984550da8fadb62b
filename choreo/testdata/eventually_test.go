// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testdata

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventuallySucceeds(t *testing.T) {
	var calls int32
	ok := Eventually(t, func() (bool, error) {
		return atomic.AddInt32(&calls, 1) >= 3, errors.New("not yet")
	}, time.Millisecond, time.Second)

	assert.True(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEventuallyGivesUp(t *testing.T) {
	start := time.Now()
	ok := Eventually(t, func() (bool, error) { return false, nil }, time.Millisecond, 20*time.Millisecond)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}
