// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads runner settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Log formats understood by the logging package.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Settings hold everything the vignette runner reads from the environment.
type Settings struct {
	LogToStdout    bool   `env:"CHOREO_LOG_TO_STDOUT" envDefault:"false"`
	LogDir         string `env:"CHOREO_LOG_DIR" envDefault:"log"`
	LogLevel       string `env:"CHOREO_LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"CHOREO_LOG_FORMAT" envDefault:"text"`
	LogParticipant bool   `env:"CHOREO_LOG_PARTICIPANT" envDefault:"true"`
	LogElapsedTime bool   `env:"CHOREO_LOG_ELAPSED_TIME" envDefault:"true"`
	LogSeverity    bool   `env:"CHOREO_LOG_SEVERITY" envDefault:"true"`
	LogTabOffset   bool   `env:"CHOREO_LOG_TAB_OFFSET" envDefault:"true"`

	// DatabasePath is the SQLite file used by vignettes; empty picks a temporary file.
	DatabasePath string `env:"CHOREO_DATABASE_PATH"`

	WaitTimeout  time.Duration `env:"CHOREO_WAIT_TIMEOUT" envDefault:"5s"`
	PollInterval time.Duration `env:"CHOREO_POLL_INTERVAL" envDefault:"50ms"`
	GracePeriod  time.Duration `env:"CHOREO_GRACE_PERIOD" envDefault:"200ms"`
	MaxRetries   int           `env:"CHOREO_MAX_RETRIES" envDefault:"25"`
}

// Load parses Settings from environment variables.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings no component can run with.
func (s Settings) Validate() error {
	switch s.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q", s.LogFormat)
	}
	if s.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", s.WaitTimeout)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", s.PollInterval)
	}
	if s.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive, got %s", s.GracePeriod)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", s.MaxRetries)
	}
	return nil
}
