// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/meta"
	"github.com/staranto/stockctl/internal/output"
)

// IqCommandAction prints company fundamentals for one ticker. Info is never
// cached.
func IqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", cmd.Args().Slice())

	if ShortCircuitTLDR(ctx, cmd, "iq") {
		return nil
	}

	ticker := cmd.Args().First()
	info := newCollector(cmd).GetStockInfo(ctx, ticker)
	if len(info) == 0 {
		return fmt.Errorf("no info found for %s", ticker)
	}

	return output.SpitMapping(m.Out(), info, output.OptionsFromCommand(cmd))
}

// IqCommandBuilder constructs the cli.Command for "iq".
func IqCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "iq",
		Usage:     "company info query",
		UsageText: `stockctl iq TICKER [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: NewGlobalFlags("iq"),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("tldr") {
				return ctx, nil
			}
			if c.Args().Len() != 1 {
				return ctx, fmt.Errorf("iq needs exactly one ticker")
			}
			return TickerArgsValidator(1)(ctx, c)
		},
		Action: IqCommandAction,
	}
}
