// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/market"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func oneOf(value any, valid []string) error {
	if !slices.Contains(valid, value.(string)) {
		return fmt.Errorf("must be one of %v", valid)
	}
	return nil
}

func OutputValidator(value any) error {
	return oneOf(value, []string{"text", "json", "raw", "yaml"})
}

func PeriodValidator(value any) error {
	return oneOf(value, market.Periods)
}

func IntervalValidator(value any) error {
	return oneOf(value, market.Intervals)
}

// TickerArgsValidator checks every positional argument is a plausible ticker.
// At least min arguments are required.
func TickerArgsValidator(min int) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		args := cmd.Args().Slice()
		if len(args) < min {
			return ctx, fmt.Errorf("%s needs at least %d ticker", cmd.Name, min)
		}
		for _, a := range args {
			if err := market.ValidateTicker(a); err != nil {
				return ctx, err
			}
		}
		return ctx, nil
	}
}
