// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/etl"
	"github.com/staranto/stockctl/internal/meta"
)

// DefaultTicker is processed when etl is given no argument.
const DefaultTicker = "AAPL"

// exitETLFailed is returned through cli.Exit when the pipeline reports
// failure.
const exitETLFailed = 3

// EtlCommandAction runs extract, transform and load for one ticker and writes
// the report to stdout.
func EtlCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", cmd.Args().Slice())

	if ShortCircuitTLDR(ctx, cmd, "etl") {
		return nil
	}

	ticker := DefaultTicker
	if cmd.Args().Len() > 0 {
		ticker = cmd.Args().First()
	}

	if !etl.Run(ctx, m.Out(), newCollector(cmd), ticker, m.Clock()) {
		return cli.Exit("", exitETLFailed)
	}
	return nil
}

// EtlCommandBuilder constructs the cli.Command for "etl".
func EtlCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "etl",
		Usage:     "run the stock data pipeline",
		UsageText: `stockctl etl [TICKER]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			newTldrFlag(),
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("tldr") {
				return ctx, nil
			}
			if c.Args().Len() > 1 {
				return ctx, cli.Exit("etl takes at most one ticker", 1)
			}
			return ctx, nil
		},
		Action: EtlCommandAction,
	}
}
