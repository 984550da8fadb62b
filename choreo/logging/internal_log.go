// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"go.vignettes.dev/choreo/config"
)

// SetOutput configures logging output for standard loggers.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	logrus.SetOutput(w)
}

// NewLogger builds a logger writing to out with the layout described by settings.
func NewLogger(settings config.Settings, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)

	switch settings.LogFormat {
	case config.LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case config.LogFormatText, "":
		logger.SetFormatter(&Formatter{
			ShowSeverity:    settings.LogSeverity,
			ShowElapsed:     settings.LogElapsedTime,
			ShowParticipant: settings.LogParticipant,
			TabOffset:       settings.LogTabOffset,
			Start:           time.Now(),
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", settings.LogFormat)
	}

	return logger, nil
}

// OpenOutput returns stdout when settings ask for it, otherwise a fresh
// timestamped file under settings.LogDir. The caller closes the result.
func OpenOutput(settings config.Settings, now time.Time) (io.WriteCloser, error) {
	if settings.LogToStdout {
		return nopCloser{os.Stdout}, nil
	}

	if err := os.MkdirAll(settings.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(settings.LogDir, now.Format("2006-01-02-15-04-05")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Silence raises the level of logger to fatal while fn runs.
func Silence(logger *logrus.Logger, fn func()) {
	level := logger.GetLevel()
	logger.SetLevel(logrus.FatalLevel)
	defer logger.SetLevel(level)
	fn()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
