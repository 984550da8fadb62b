// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.False(t, s.LogToStdout)
	assert.Equal(t, "log", s.LogDir)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, LogFormatText, s.LogFormat)
	assert.True(t, s.LogParticipant)
	assert.True(t, s.LogElapsedTime)
	assert.True(t, s.LogSeverity)
	assert.True(t, s.LogTabOffset)
	assert.Empty(t, s.DatabasePath)
	assert.Equal(t, 5*time.Second, s.WaitTimeout)
	assert.Equal(t, 50*time.Millisecond, s.PollInterval)
	assert.Equal(t, 200*time.Millisecond, s.GracePeriod)
	assert.Equal(t, 25, s.MaxRetries)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHOREO_LOG_TO_STDOUT", "true")
	t.Setenv("CHOREO_LOG_LEVEL", "debug")
	t.Setenv("CHOREO_LOG_ELAPSED_TIME", "false")
	t.Setenv("CHOREO_WAIT_TIMEOUT", "2s")
	t.Setenv("CHOREO_MAX_RETRIES", "3")

	s, err := Load()
	require.NoError(t, err)

	assert.True(t, s.LogToStdout)
	assert.Equal(t, "debug", s.LogLevel)
	assert.False(t, s.LogElapsedTime)
	assert.Equal(t, 2*time.Second, s.WaitTimeout)
	assert.Equal(t, 3, s.MaxRetries)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("CHOREO_MAX_RETRIES", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadInvalidFormat(t *testing.T) {
	t.Setenv("CHOREO_LOG_FORMAT", "xml")

	_, err := Load()
	assert.EqualError(t, err, `invalid log format "xml"`)
}

func TestValidate(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	s.PollInterval = 0
	assert.Error(t, s.Validate())

	s.PollInterval = time.Millisecond
	s.MaxRetries = -1
	assert.Error(t, s.Validate())

	s.MaxRetries = 0
	assert.NoError(t, s.Validate())

	s.GracePeriod = 0
	assert.EqualError(t, s.Validate(), "grace period must be positive, got 0s")
}
