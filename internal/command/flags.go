// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/config"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/output"
)

func init() {
	cfg, _ = config.Load("")
}

var cfg config.Type

func newTldrFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
}

// fromConfig returns a value source for key in the config file.
func fromConfig(key string) cli.ValueSource {
	return yaml.YAML(key, altsrc.StringSourcer(cfg.Source))
}

// NewRootFlags returns the flags every command inherits.
func NewRootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "version",
			Aliases:     []string{"v"},
			Usage:       "stockctl version info",
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "directory holding cache entries",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STOCKCTL_CACHE_DIR"),
				fromConfig("cache.dir"),
			),
			Value: cacheutil.DefaultDir,
		},
		&cli.IntFlag{
			Name:  "cache-prune",
			Usage: "remove entries older than N days before fetching (0 disables)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STOCKCTL_CACHE_PRUNE"),
				fromConfig("cache.prune"),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:  "cache",
			Usage: "read and write the daily cache",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STOCKCTL_CACHE"),
				fromConfig("cache.enabled"),
			),
			Value: true,
		},
		&cli.StringFlag{
			Name:   "base-url",
			Usage:  "market data provider base URL",
			Hidden: true,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STOCKCTL_PROVIDER_URL"),
				fromConfig("provider.base_url"),
			),
			Value: market.DefaultBaseURL,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "provider request timeout",
			Sources: cli.NewValueSourceChain(
				fromConfig("provider.timeout"),
			),
			Value: 10 * time.Second, //nolint:mnd
		},
	}
}

// NewGlobalFlags returns the output flags shared by query commands. params[0]
// is the command namespace used for config file lookups.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "columns",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of columns to include in results",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0] + "." + "columns"),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0]+"."+"color"),
				fromConfig("color"),
			),
			Value: output.ColorDefault(),
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0]+"."+"output"),
				fromConfig("output"),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0] + "." + "sort"),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0]+"."+"titles"),
				fromConfig("titles"),
			),
			Value: false,
		},
		newTldrFlag(),
	}

	return
}

// NewPeriodFlags returns --period and --interval, namespaced to params[0].
func NewPeriodFlags(params ...string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "period",
			Aliases: []string{"p"},
			Usage:   "history period (1d 5d 1mo 3mo 6mo 1y 2y 3y 5y 10y ytd max)",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0] + "." + "period"),
			),
			Value: "1y",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator, PeriodValidator)
			},
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "bar interval (1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo)",
			Sources: cli.NewValueSourceChain(
				fromConfig(params[0] + "." + "interval"),
			),
			Value: "1d",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator, IntervalValidator)
			},
		},
	}
}

// NewMirrorFlags returns the S3 mirror flags used by cache push and pull.
func NewMirrorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "S3 bucket holding the shared cache",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("STOCKCTL_MIRROR_BUCKET"),
				fromConfig("mirror.bucket"),
			),
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "key prefix inside the bucket",
			Sources: cli.NewValueSourceChain(
				fromConfig("mirror.prefix"),
			),
			Value: "stockctl/raw",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region. Defaults to the AWS environment",
			Sources: cli.NewValueSourceChain(
				fromConfig("mirror.region"),
			),
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "AWS shared config profile",
			Sources: cli.NewValueSourceChain(
				fromConfig("mirror.profile"),
			),
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3 compatible endpoint URL",
			Sources: cli.NewValueSourceChain(
				fromConfig("mirror.endpoint"),
			),
		},
	}
}

// pathHas checks if the given executable is on the PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
