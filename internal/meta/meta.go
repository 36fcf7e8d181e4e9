// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/staranto/stockctl/internal/config"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/mirror"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// Stdout receives command output. Nil means os.Stdout.
	Stdout io.Writer
	// Provider overrides the market data provider built from flags.
	Provider market.Provider
	// S3 overrides the client used by cache push and pull.
	S3 mirror.Client
	// Now overrides the clock used for cache keys.
	Now func() time.Time
}

// Out returns the writer commands print to.
func (m Meta) Out() io.Writer {
	if m.Stdout == nil {
		return os.Stdout
	}
	return m.Stdout
}

// Clock returns the configured clock, defaulting to time.Now.
func (m Meta) Clock() func() time.Time {
	if m.Now == nil {
		return time.Now
	}
	return m.Now
}
