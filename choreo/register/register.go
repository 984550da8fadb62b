// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package register provides a keyed accumulator shared between participants.
package register

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Register maps keys to the ordered list of values recorded under them.
// The zero value is not usable, use New.
type Register struct {
	mutex *sync.Mutex
	data  map[string][]any
}

// New returns an empty register.
func New() *Register {
	return &Register{
		mutex: &sync.Mutex{},
		data:  map[string][]any{},
	}
}

// Get returns the value recorded under key if exactly one was recorded,
// otherwise the full list of values (empty when none was recorded).
func (r *Register) Get(key string) any {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	values := r.data[key]
	if len(values) == 1 {
		return values[0]
	}
	return append([]any{}, values...)
}

// Values returns a copy of every value recorded under key, in insertion order.
func (r *Register) Values(key string) []any {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]any{}, r.data[key]...)
}

// Has reports whether at least one value was recorded under key.
func (r *Register) Has(key string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.data[key]) > 0
}

// Set appends value to the list recorded under key.
func (r *Register) Set(key string, value any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.data[key] = append(r.data[key], value)
}

// Reset drops every entry.
func (r *Register) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.data = map[string][]any{}
}

func (r *Register) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	keys := make([]string, 0, len(r.data))
	for key := range r.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", key, r.data[key])
	}
	b.WriteString("}")
	return b.String()
}
