// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package waitable

import (
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

const maxStackDumpSize = 64 << 20

// Stacks returns stack traces of all live goroutines, one entry per goroutine.
func Stacks() []string {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxStackDumpSize {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	var stacks []string
	for _, block := range strings.Split(strings.TrimSpace(string(buf)), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			stacks = append(stacks, block)
		}
	}
	return stacks
}

// DumpGoroutines logs the stack of every live goroutine at warn level.
func DumpGoroutines(logger log.FieldLogger) {
	if logger == nil {
		return
	}

	stacks := Stacks()
	logger.Warnf("Dumping %d goroutines", len(stacks))
	for _, stack := range stacks {
		header, trace, found := strings.Cut(stack, "\n")
		if !found {
			trace = "<no backtrace>"
		}
		logger.Warn(header)
		logger.Warn(trace)
	}
}
