// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/stockctl/internal/result"
)

// Entry describes a persisted cache file.
type Entry struct {
	Name    string
	Key     string
	Path    string
	Size    int64
	ModTime time.Time
}

// Day returns the day stamp embedded in the key, or the zero time when the
// key doesn't end in one.
func (e Entry) Day() time.Time {
	i := strings.LastIndex(e.Key, "_")
	if i < 0 {
		return time.Time{}
	}
	d, err := time.Parse(DateLayout, e.Key[i+1:])
	if err != nil {
		return time.Time{}
	}
	return d
}

// removeFile is swapped out in tests.
var removeFile = os.Remove

// Status lists every entry in dir sorted by name. A missing directory has no
// entries.
func Status(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var entries []Entry
	for _, de := range des {
		if !isEntry(de) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			log.WithError(err).Debugf("skipping %s", de.Name())
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Key:     strings.TrimSuffix(de.Name(), result.Extension),
			Path:    filepath.Join(dir, de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Clear removes every entry in dir. A failed removal is logged and the
// remaining entries are still removed. Returns the number removed.
func Clear(dir string) (int, error) {
	return removeWhere(dir, func(Entry) bool { return true })
}

// Prune removes entries last modified more than maxAge before now.
// maxAge <= 0 is a no-op.
func Prune(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		log.Debug("cache pruning disabled")
		return 0, nil
	}
	return removeWhere(dir, func(e Entry) bool {
		return now.Sub(e.ModTime) > maxAge
	})
}

func removeWhere(dir string, match func(Entry) bool) (int, error) {
	entries, err := Status(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if !match(e) {
			continue
		}
		if err := removeFile(e.Path); err != nil {
			log.WithError(err).Warnf("failed to remove cache file %s", e.Path)
			continue
		}
		log.Debugf("removed cache file %s", e.Path)
		removed++
	}
	return removed, nil
}

// Read decodes the entry stored under key in dir.
func Read(dir, key string) (*result.Entry, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(EntryPath(dir, key))
	if err != nil {
		return nil, err
	}
	return result.Decode(data)
}

// ReadRaw returns the stored bytes of key without decoding them.
func ReadRaw(dir, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return os.ReadFile(EntryPath(dir, key))
}

func isEntry(de fs.DirEntry) bool {
	name := de.Name()
	return de.Type().IsRegular() &&
		!strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, result.Extension)
}
