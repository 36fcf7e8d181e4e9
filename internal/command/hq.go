// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/meta"
	"github.com/staranto/stockctl/internal/output"
	"github.com/staranto/stockctl/internal/result"
)

// HqCommandAction is the action handler for the "hq" subcommand. It fetches
// history for every ticker through the daily cache and renders the rows as
// one dataset.
func HqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", cmd.Args().Slice())

	if ShortCircuitTLDR(ctx, cmd, "hq") {
		return nil
	}

	tickers := uniqueTickers(cmd.Args().Slice())
	period, interval := cmd.String("period"), cmd.String("interval")

	sc := newCollector(cmd)
	data := sc.FetchMultipleStocks(ctx, tickers, period, interval)
	if len(data) == 0 {
		return fmt.Errorf("no history found for %v", tickers)
	}

	// Keep argument order rather than map order.
	var combined *result.Table
	for _, t := range tickers {
		tbl, ok := data[t]
		if !ok {
			continue
		}
		combined = appendTable(combined, tbl)
	}

	return output.SliceDiceSpit(m.Out(), combined, output.OptionsFromCommand(cmd))
}

// uniqueTickers normalizes tickers and drops repeats, keeping the first
// occurrence's position.
func uniqueTickers(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))
	for _, a := range args {
		t := market.NormalizeTicker(a)
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// appendTable appends the rows of src to dst, matching columns by name.
func appendTable(dst, src *result.Table) *result.Table {
	if dst == nil {
		dst = result.NewTable(src.Columns...)
	}
	for i := range src.Rows {
		cells := make([]any, len(dst.Columns))
		for j, c := range dst.Columns {
			cells[j] = src.Cell(i, c)
		}
		_ = dst.Append(cells...)
	}
	return dst
}

// HqCommandBuilder constructs the cli.Command for "hq", wiring metadata,
// flags, and action/validator handlers.
func HqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "hq",
		Usage:     "history query",
		UsageText: `stockctl hq TICKER... [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append(append([]cli.Flag{
			&cli.IntFlag{
				Name:  "tail",
				Usage: "only show the last N rows",
				Sources: cli.NewValueSourceChain(
					fromConfig("hq.tail"),
				),
			},
		}, NewPeriodFlags("hq")...), NewGlobalFlags("hq")...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("tldr") {
				return ctx, nil
			}
			return TickerArgsValidator(1)(ctx, c)
		},
		Action: HqCommandAction,
	}
}
