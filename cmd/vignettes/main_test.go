// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.vignettes.dev/choreo/config"
	"go.vignettes.dev/choreo/harness"
	"go.vignettes.dev/choreo/vignette"
)

func TestOptionsOverrideSettings(t *testing.T) {
	settings := config.Settings{LogLevel: "info", DatabasePath: "env.db"}

	options{}.apply(&settings)
	assert.Equal(t, config.Settings{LogLevel: "info", DatabasePath: "env.db"}, settings)

	options{LogLevel: "debug", Stdout: true, DB: "flag.db"}.apply(&settings)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.True(t, settings.LogToStdout)
	assert.Equal(t, "flag.db", settings.DatabasePath)
}

func TestSelectVignettes(t *testing.T) {
	all, err := selectVignettes(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(vignette.Catalog()))

	some, err := selectVignettes([]string{"atomic", "lost-update"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "atomic", some[0].Name)
	assert.Equal(t, "lost-update", some[1].Name)

	_, err = selectVignettes([]string{"dirty-read"})
	assert.EqualError(t, err, `unknown vignette "dirty-read", see --list`)
}

func TestOpenStoreUsesThrowawayDatabase(t *testing.T) {
	s, cleanup, err := openStore(config.Settings{})
	require.NoError(t, err)
	require.NoError(t, s.CreateEvent(context.Background(), "event_a", 1))
	cleanup()

	path := filepath.Join(t.TempDir(), "kept.db")
	s, cleanup, err = openStore(config.Settings{DatabasePath: path})
	require.NoError(t, err)
	cleanup()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestRunVignettes(t *testing.T) {
	s, cleanup, err := openStore(config.Settings{DatabasePath: filepath.Join(t.TempDir(), "vignettes.db")})
	require.NoError(t, err)
	defer cleanup()

	logger, hook := test.NewNullLogger()
	env := vignette.Env{
		Harness: harness.New(logger, harness.ConfigFrom(config.Settings{
			WaitTimeout:  5 * time.Second,
			PollInterval: 5 * time.Millisecond,
			GracePeriod:  200 * time.Millisecond,
			MaxRetries:   3,
		}, logger)),
		Store: s,
	}
	defer env.Harness.Close()

	selected, err := selectVignettes([]string{"non-atomic", "optimistic-locking"})
	require.NoError(t, err)

	assert.Zero(t, runVignettes(context.Background(), env, selected, 2))

	var verdicts []string
	for _, entry := range hook.AllEntries() {
		if strings.HasSuffix(entry.Message, " passed") || strings.HasSuffix(entry.Message, " failed") {
			verdicts = append(verdicts, entry.Message)
		}
	}
	assert.Equal(t, []string{"non-atomic passed", "optimistic-locking passed"}, verdicts)
}

func TestPrintCatalog(t *testing.T) {
	var out bytes.Buffer
	printCatalog(&out, vignette.Catalog())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(vignette.Catalog()))
	assert.True(t, strings.HasPrefix(lines[0], "non-atomic "))
}
