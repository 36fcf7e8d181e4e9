// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package result

import "sort"

// Mapping is a named collection of Results. Values may nest.
type Mapping map[string]Result

func (Mapping) Kind() Kind { return KindMapping }

// Get walks a path of keys through nested mappings. It returns nil when any
// step is missing or not a mapping.
func (m Mapping) Get(path ...string) Result {
	var current Result = m
	for _, key := range path {
		mm, ok := current.(Mapping)
		if !ok {
			return nil
		}
		current = mm[key]
	}
	return current
}

// Mapping returns the nested mapping at path, or nil.
func (m Mapping) Mapping(path ...string) Mapping {
	mm, _ := m.Get(path...).(Mapping)
	return mm
}

// Table returns the table at path, or nil.
func (m Mapping) Table(path ...string) *Table {
	t, _ := m.Get(path...).(*Table)
	return t
}

// Scalar returns the scalar at path and whether one was found.
func (m Mapping) Scalar(path ...string) (Scalar, bool) {
	s, ok := m.Get(path...).(Scalar)
	return s, ok
}

// Float returns the float64 scalar at path.
func (m Mapping) Float(path ...string) (float64, bool) {
	s, ok := m.Scalar(path...)
	if !ok {
		return 0, false
	}
	f, ok := s.Value.(float64)
	return f, ok
}

// Str returns the string scalar at path, or def when absent or not a string.
func (m Mapping) Str(def string, path ...string) string {
	s, ok := m.Scalar(path...)
	if !ok {
		return def
	}
	if v, ok := s.Value.(string); ok && v != "" {
		return v
	}
	return def
}

// Keys returns the mapping's keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetIfPresent stores r under key unless it is empty.
func (m Mapping) SetIfPresent(key string, r Result) bool {
	if IsEmpty(r) {
		return false
	}
	m[key] = r
	return true
}
