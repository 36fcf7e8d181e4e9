// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"fmt"
	"os"

	"github.com/staranto/stockctl/internal/config"
)

// DefaultDir is used when neither STOCKCTL_CACHE_DIR nor cache.dir is set.
const DefaultDir = "data/raw"

// Dir resolves the cache directory.
// Precedence:
//  1. STOCKCTL_CACHE_DIR, if set and non-empty
//  2. cache.dir from the config file
//  3. DefaultDir, relative to the working directory
func Dir() string {
	if c, ok := os.LookupEnv("STOCKCTL_CACHE_DIR"); ok && c != "" {
		return c
	}
	if c, _ := config.GetString("cache.dir", ""); c != "" {
		return c
	}
	return DefaultDir
}

// Enabled returns true unless STOCKCTL_CACHE explicitly disables it
// ("0"/"false") or cache.enabled is false in the config file.
func Enabled() bool {
	if enabled, ok := os.LookupEnv("STOCKCTL_CACHE"); ok && enabled != "" {
		return enabled != "0" && enabled != "false"
	}
	on, _ := config.GetBool("cache.enabled", true)
	return on
}

// EnsureDir creates dir and its parents. It is safe to call repeatedly.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}
