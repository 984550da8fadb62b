// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseWakesParticipantAboutToPark(t *testing.T) {
	g := NewCoordinationGroup()

	// The holder has checked its flags and is about to park when release runs.
	g.mutex.Lock()
	done := g.release(time.Millisecond)
	g.cond.Wait()
	g.mutex.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "release did not finish")
	}
}

func TestReleaseStopsWhenGroupCloses(t *testing.T) {
	g := NewCoordinationGroup()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	done := g.release(time.Millisecond)
	g.close()
	g.close()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "release still waiting for the mutex after close")
	}
	assert.False(t, g.mutex.TryLock())
}
