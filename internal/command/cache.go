// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/aws"
	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/differ"
	"github.com/staranto/stockctl/internal/meta"
	"github.com/staranto/stockctl/internal/mirror"
	"github.com/staranto/stockctl/internal/output"
	"github.com/staranto/stockctl/internal/result"
)

const day = 24 * time.Hour

// CacheStatusAction lists the entries in the cache directory.
func CacheStatusAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	if ShortCircuitTLDR(ctx, cmd, "cache") {
		return nil
	}

	dir := cacheDir(cmd)
	entries, err := cacheutil.Status(dir)
	if err != nil {
		return err
	}
	log.Debugf("%d entries in %s", len(entries), dir)

	now := m.Clock()()
	tbl := result.NewTable("Key", "Size", "Bytes", "Modified", "Age")
	for _, e := range entries {
		_ = tbl.Append(
			e.Key,
			humanize.Bytes(uint64(e.Size)), //nolint:gosec
			float64(e.Size),
			e.ModTime.Format(time.RFC3339),
			humanize.RelTime(e.ModTime, now, "ago", "from now"),
		)
	}

	opts := output.OptionsFromCommand(cmd)
	if opts.Columns == "" {
		opts.Columns = "Key,Size,Age"
	}
	return output.SliceDiceSpit(m.Out(), tbl, opts)
}

// CacheClearAction removes every entry.
func CacheClearAction(_ context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	n, err := cacheutil.Clear(cacheDir(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintf(m.Out(), "Removed %d cache %s.\n", n, plural(n, "entry", "entries"))
	return nil
}

// CachePruneAction removes entries older than --days.
func CachePruneAction(_ context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	days := cmd.Int("days")
	if days <= 0 {
		return errors.New("--days must be greater than zero")
	}

	n, err := cacheutil.Prune(cacheDir(cmd), time.Duration(days)*day, m.Clock()())
	if err != nil {
		return err
	}
	fmt.Fprintf(m.Out(), "Pruned %d cache %s older than %d %s.\n",
		n, plural(n, "entry", "entries"), days, plural(days, "day", "days"))
	return nil
}

// CacheDiffAction compares the results held by two entries.
func CacheDiffAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	dir := cacheDir(cmd)
	var entries [][]byte
	for _, key := range cmd.Args().Slice() {
		data, err := cacheutil.ReadRaw(dir, strings.TrimSuffix(key, result.Extension))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		entries = append(entries, data)
	}

	_, err := differ.Diff(ctx, m.Out(), entries, cmd.Bool("color"))
	return err
}

// CachePushAction uploads local entries to the S3 mirror.
func CachePushAction(ctx context.Context, cmd *cli.Command) error {
	return syncMirror(ctx, cmd, "push", (*mirror.Mirror).Push)
}

// CachePullAction downloads mirror entries that are missing locally.
func CachePullAction(ctx context.Context, cmd *cli.Command) error {
	return syncMirror(ctx, cmd, "pull", (*mirror.Mirror).Pull)
}

func syncMirror(
	ctx context.Context,
	cmd *cli.Command,
	verb string,
	op func(*mirror.Mirror, context.Context) (mirror.Report, error),
) error {
	m := GetMeta(cmd)

	if cmd.String("bucket") == "" {
		return mirror.ErrNoBucket
	}

	client := m.S3
	if client == nil {
		c, err := aws.NewS3(ctx,
			aws.WithProfile(cmd.String("profile")),
			aws.WithRegion(cmd.String("region")),
			aws.WithEndpoint(cmd.String("endpoint")),
		)
		if err != nil {
			return err
		}
		client = c
	}

	mr, err := mirror.New(client, cmd.String("bucket"), cmd.String("prefix"), cacheDir(cmd))
	if err != nil {
		return err
	}

	rep, err := op(mr, ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(m.Out(), "%s: %d copied, %d skipped, %d failed\n",
		verb, len(rep.Copied), len(rep.Skipped), len(rep.Failed))
	if len(rep.Failed) > 0 {
		return fmt.Errorf("%s failed for %s", verb, strings.Join(rep.Failed, ", "))
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// CacheCommandBuilder constructs "cache" and its subcommands.
func CacheCommandBuilder(meta meta.Meta) *cli.Command {
	md := map[string]any{"meta": meta}

	return &cli.Command{
		Name:      "cache",
		Usage:     "inspect and maintain the daily cache",
		UsageText: `stockctl cache <status|clear|prune|diff|push|pull> [options]`,
		Metadata:  md,
		Commands: []*cli.Command{
			{
				Name:     "status",
				Usage:    "list cache entries",
				Metadata: md,
				Flags:    NewGlobalFlags("cache"),
				Action:   CacheStatusAction,
			},
			{
				Name:     "clear",
				Usage:    "remove every cache entry",
				Metadata: md,
				Action:   CacheClearAction,
			},
			{
				Name:     "prune",
				Usage:    "remove entries older than --days",
				Metadata: md,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "age in days",
						Sources: cli.NewValueSourceChain(
							fromConfig("cache.prune"),
						),
						Value: 7, //nolint:mnd
					},
				},
				Action: CachePruneAction,
			},
			{
				Name:      "diff",
				Usage:     "compare the results of two entries",
				UsageText: `stockctl cache diff KEY1 KEY2`,
				Metadata:  md,
				Flags: []cli.Flag{
					&cli.BoolWithInverseFlag{
						Name:    "color",
						Aliases: []string{"c"},
						Usage:   "enable colored diff output",
						Value:   output.ColorDefault(),
					},
				},
				Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
					if c.Args().Len() != 2 { //nolint:mnd
						return ctx, differ.ErrEntryCount
					}
					return ctx, nil
				},
				Action: CacheDiffAction,
			},
			{
				Name:     "push",
				Usage:    "upload entries to the S3 mirror",
				Metadata: md,
				Flags:    NewMirrorFlags(),
				Action:   CachePushAction,
			},
			{
				Name:     "pull",
				Usage:    "download missing entries from the S3 mirror",
				Metadata: md,
				Flags:    NewMirrorFlags(),
				Action:   CachePullAction,
			},
		},
	}
}
