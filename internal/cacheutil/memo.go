// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/stockctl/internal/result"
)

// DateLayout is the day stamp appended to every key.
const DateLayout = "2006-01-02"

// ErrKeyDerivation is returned by Call when the key function can't produce a
// usable key. The wrapped operation is not invoked.
var ErrKeyDerivation = errors.New("cannot derive cache key")

// Operation produces a result from a set of arguments.
type Operation[A any] func(ctx context.Context, args A) (result.Result, error)

// KeyFunc derives the identity part of a cache key from the full argument
// set. The day stamp is appended by the Memoizer.
type KeyFunc[A any] func(args A) (string, error)

type options struct {
	dir     string
	now     func() time.Time
	enabled bool
	kind    result.Kind
}

// Option customizes a Memoizer.
type Option func(*options)

// WithDir sets the cache directory. Defaults to Dir().
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithClock sets the time source used for the day stamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithEnabled turns memoization on or off. Defaults to Enabled().
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithKind makes hits of any other kind count as misses, so the entry is
// recomputed and overwritten.
func WithKind(kind result.Kind) Option {
	return func(o *options) { o.kind = kind }
}

// Memoizer wraps an Operation with a per-day disk cache. Entries are named
// {key}_{YYYY-MM-DD}.json under the cache directory.
type Memoizer[A any] struct {
	op      Operation[A]
	keyFn   KeyFunc[A]
	dir     string
	now     func() time.Time
	enabled bool
	kind    result.Kind
}

// NewMemoizer returns a Memoizer for op keyed by keyFn.
func NewMemoizer[A any](op Operation[A], keyFn KeyFunc[A], opts ...Option) *Memoizer[A] {
	o := options{now: time.Now, enabled: Enabled()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dir == "" {
		o.dir = Dir()
	}
	return &Memoizer[A]{
		op:      op,
		keyFn:   keyFn,
		dir:     o.dir,
		now:     o.now,
		enabled: o.enabled,
		kind:    o.kind,
	}
}

// Dir returns the directory entries are written to.
func (m *Memoizer[A]) Dir() string { return m.dir }

// Key returns the full cache key for args on the current day.
func (m *Memoizer[A]) Key(args A) (string, error) {
	base, err := m.keyFn(args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}
	if err := checkKey(base); err != nil {
		return "", err
	}
	return base + "_" + m.now().Format(DateLayout), nil
}

// Call returns today's cached result for args, or invokes the operation and
// caches what it returns. Cache read and write failures are logged and never
// returned; only key derivation and operation errors are.
func (m *Memoizer[A]) Call(ctx context.Context, args A) (result.Result, error) {
	key, err := m.Key(args)
	if err != nil {
		return nil, err
	}

	if !m.enabled {
		return m.op(ctx, args)
	}

	logger := log.WithField("key", key)

	if err := EnsureDir(m.dir); err != nil {
		logger.WithError(err).Warn("cache directory unavailable")
	}

	path := EntryPath(m.dir, key)
	if data, err := os.ReadFile(path); err == nil {
		entry, err := result.Decode(data)
		switch {
		case err != nil:
			logger.WithError(err).Warn("unreadable cache entry, fetching again")
		case m.kind != "" && kindOf(entry.Result) != m.kind:
			logger.Warnf("cache entry holds %q, want %q, fetching again", kindOf(entry.Result), m.kind)
		default:
			logger.Debug("cache hit")
			return entry.Result, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.WithError(err).Warn("failed to read cache entry")
	}

	logger.Debug("cache miss")
	r, err := m.op(ctx, args)
	if err != nil {
		return nil, err
	}

	if result.IsEmpty(r) {
		logger.Debug("empty result, not cached")
		return r, nil
	}

	if err := m.write(key, r); err != nil {
		logger.WithError(err).Warn("failed to write cache entry")
		return r, nil
	}
	logger.Debug("cached")

	return r, nil
}

func kindOf(r result.Result) result.Kind {
	if r == nil {
		return ""
	}
	return r.Kind()
}

// write encodes r and stores it under key.
func (m *Memoizer[A]) write(key string, r result.Result) error {
	data, err := result.Encode(key, m.now(), r)
	if err != nil {
		return err
	}
	return WriteRaw(m.dir, key, data)
}

// WriteRaw stores data as the entry for key in dir via a temp file and rename
// so readers never see a partial entry.
func WriteRaw(dir, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:mnd
		log.WithError(err).Debugf("chmod %s", tmpPath)
	}
	if err := os.Rename(tmpPath, EntryPath(dir, key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// EntryPath returns the file that holds key under dir.
func EntryPath(dir, key string) string {
	return filepath.Join(dir, key+result.Extension)
}

func checkKey(k string) error {
	switch {
	case strings.TrimSpace(k) == "":
		return fmt.Errorf("%w: empty key", ErrKeyDerivation)
	case k == "." || k == "..":
		return fmt.Errorf("%w: %q", ErrKeyDerivation, k)
	case strings.ContainsAny(k, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrKeyDerivation, k)
	}
	return nil
}
