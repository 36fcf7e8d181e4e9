// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/collector"
	"github.com/staranto/stockctl/internal/config"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/meta"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr stockctl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "stockctl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the Metadata of cmd or the nearest
// ancestor that has one. If missing it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range cmd.Lineage() {
		if c.Metadata == nil {
			continue
		}
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

// cacheDir returns the --cache-dir value, falling back to the environment and
// config file resolution when the flag is empty.
func cacheDir(cmd *cli.Command) string {
	if d := cmd.String("cache-dir"); d != "" {
		return d
	}
	return cacheutil.Dir()
}

// newProvider returns the provider injected through meta or a Yahoo client
// configured from the root flags.
func newProvider(cmd *cli.Command) market.Provider {
	if p := GetMeta(cmd).Provider; p != nil {
		return p
	}
	return market.NewYahoo(
		market.WithBaseURL(cmd.String("base-url")),
		market.WithTimeout(cmd.Duration("timeout")),
	)
}

// newCollector builds a StockCollector wired to the cache flags.
func newCollector(cmd *cli.Command) *collector.StockCollector {
	m := GetMeta(cmd)
	dir := cacheDir(cmd)
	log.Debugf("cache dir: %s enabled: %v", dir, cmd.Bool("cache"))
	pruneStale(cmd, dir)
	return collector.New(newProvider(cmd),
		cacheutil.WithDir(dir),
		cacheutil.WithClock(m.Clock()),
		cacheutil.WithEnabled(cmd.Bool("cache")),
	)
}

// pruneStale removes entries older than --cache-prune days from dir. Failures
// are only logged.
func pruneStale(cmd *cli.Command, dir string) {
	days := cmd.Int("cache-prune")
	if days <= 0 || !cmd.Bool("cache") {
		return
	}
	n, err := cacheutil.Prune(dir, time.Duration(days)*day, GetMeta(cmd).Clock()())
	if err != nil {
		log.WithError(err).Warn("cache prune failed")
		return
	}
	log.Debugf("cache prune removed %d entries", n)
}

// ExpandArgs splices a named argument set from the config file into args.
// A set is chosen with an @name argument anywhere after the command and
// defaults to @defaults. Sets live under <command>.<name> as a list of
// strings, each of which may hold several space separated arguments.
func ExpandArgs(args []string) []string {
	if len(args) < 2 || strings.HasPrefix(args[1], "-") {
		return args
	}

	// Help short-circuits everything else.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return []string{args[0], args[1], "--help"}
		}
	}

	out := make([]string, 2, len(args)+4) //nolint:mnd
	copy(out, args[:2])

	set := "defaults"
	for _, a := range args[2:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			continue
		}
		out = append(out, a)
	}

	setArgs, _ := config.GetStringSlice(args[1] + "." + set)
	var extra []string
	for _, arg := range setArgs {
		extra = append(extra, strings.Fields(arg)...)
	}

	// Set args go right after the command so explicit args win.
	out = append(out[:2], append(extra, out[2:]...)...)

	log.Debugf("set=%s, args=%v", set, out)
	return out
}
