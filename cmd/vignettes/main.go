// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"go.vignettes.dev/choreo/config"
	"go.vignettes.dev/choreo/harness"
	"go.vignettes.dev/choreo/logging"
	"go.vignettes.dev/choreo/vignette"
	"go.vignettes.dev/choreo/vignette/store"
)

type options struct {
	LogLevel string `long:"log-level" description:"log level, overrides CHOREO_LOG_LEVEL"`
	Stdout   bool   `long:"stdout" description:"log to stdout instead of a file under CHOREO_LOG_DIR"`
	Repeat   int    `long:"repeat" default:"1" description:"run every vignette this many times, logging only the last run"`
	List     bool   `long:"list" description:"list vignettes and exit"`
	DB       string `long:"db" description:"SQLite database file, overrides CHOREO_DATABASE_PATH"`
}

func (o options) apply(settings *config.Settings) {
	if o.LogLevel != "" {
		settings.LogLevel = o.LogLevel
	}
	if o.Stdout {
		settings.LogToStdout = true
	}
	if o.DB != "" {
		settings.DatabasePath = o.DB
	}
}

func main() {
	opts, args := getCLIArgs()

	if opts.List {
		printCatalog(os.Stdout, vignette.Catalog())
		return
	}

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load settings")
	}
	opts.apply(&settings)

	selected, err := selectVignettes(args[1:])
	if err != nil {
		log.WithError(err).Fatal("Failed to select vignettes")
	}

	if failed := run(settings, selected, opts.Repeat); failed > 0 {
		os.Exit(1)
	}
}

// run sets up logging and the store, runs the selected vignettes and tears
// everything down again. It returns the number of failed vignettes.
func run(settings config.Settings, selected []vignette.Vignette, repeat int) int {
	out, err := logging.OpenOutput(settings, time.Now())
	if err != nil {
		log.WithError(err).Fatal("Failed to open log output")
	}
	defer out.Close()

	logger, err := logging.NewLogger(settings, out)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}
	logging.SetOutput(out)

	s, cleanup, err := openStore(settings)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer cleanup()

	env := vignette.Env{
		Harness: harness.New(logger, harness.ConfigFrom(settings, logger)),
		Store:   s,
	}
	defer env.Harness.Close()

	return runVignettes(context.Background(), env, selected, repeat)
}

func getCLIArgs() (options, []string) {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] [vignette...]"
	args, err := parser.ParseArgs(os.Args)

	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Fatal("Failed to parse command line arguments:", os.Args)
	}

	return opts, args
}

// selectVignettes resolves names against the catalog; no names selects all of it.
func selectVignettes(names []string) ([]vignette.Vignette, error) {
	if len(names) == 0 {
		return vignette.Catalog(), nil
	}

	selected := make([]vignette.Vignette, 0, len(names))
	for _, name := range names {
		v, ok := vignette.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown vignette %q, see --list", name)
		}
		selected = append(selected, v)
	}
	return selected, nil
}

// openStore opens the configured database, or a throwaway one when none is configured.
func openStore(settings config.Settings) (*store.Store, func(), error) {
	path := settings.DatabasePath
	dir := ""
	if path == "" {
		var err error
		if dir, err = os.MkdirTemp("", "vignettes-"); err != nil {
			return nil, nil, fmt.Errorf("create temp dir: %w", err)
		}
		path = filepath.Join(dir, "vignettes.db")
	}

	s, err := store.Open(path)
	if err != nil {
		if dir != "" {
			os.RemoveAll(dir)
		}
		return nil, nil, err
	}

	cleanup := func() {
		s.Close()
		if dir != "" {
			os.RemoveAll(dir)
		}
	}
	return s, cleanup, nil
}

// runVignettes runs each vignette repeat times and returns how many failed.
func runVignettes(ctx context.Context, env vignette.Env, vignettes []vignette.Vignette, repeat int) int {
	logger := env.Harness.Logger()
	if repeat < 1 {
		repeat = 1
	}

	failed := 0
	for _, v := range vignettes {
		logger.Infof("%s: %s", v.Name, v.Description)

		err := env.Harness.Repeat(repeat, func(int) error {
			return v.Run(ctx, env)
		})
		if err != nil {
			failed++
			logger.WithError(err).Errorf("%s failed", v.Name)
			continue
		}
		logger.Infof("%s passed", v.Name)
	}

	if failed > 0 {
		logger.Warnf("%d of %d vignettes failed", failed, len(vignettes))
	}
	return failed
}

func printCatalog(w io.Writer, vignettes []vignette.Vignette) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range vignettes {
		fmt.Fprintf(tw, "%s\t%s\n", v.Name, v.Description)
	}
	tw.Flush()
}
