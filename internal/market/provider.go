// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package market

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/staranto/stockctl/internal/result"
)

// Common provider errors.
var (
	ErrInvalidTicker = errors.New("invalid ticker")
	ErrNoData        = errors.New("no data returned")
)

// Provider is the upstream source of market data. Tickers are expected to be
// normalized with NormalizeTicker.
type Provider interface {
	// History returns OHLCV rows for the period and interval.
	History(ctx context.Context, ticker, period, interval string) (*result.Table, error)
	// Info returns a flat mapping of fundamentals.
	Info(ctx context.Context, ticker string) (result.Mapping, error)
	Dividends(ctx context.Context, ticker string) (*result.Table, error)
	Splits(ctx context.Context, ticker string) (*result.Table, error)
	// Financials returns one table per statement.
	Financials(ctx context.Context, ticker string) (result.Mapping, error)
	Recommendations(ctx context.Context, ticker string) (*result.Table, error)
	News(ctx context.Context, ticker string) (*result.Table, error)
	// Options returns expiry date => {calls, puts}.
	Options(ctx context.Context, ticker string) (result.Mapping, error)
}

const maxTickerLen = 10

var tickerRe = regexp.MustCompile(`^[A-Za-z0-9.\-^=]+$`)

// ValidateTicker checks the basic shape of a ticker symbol.
func ValidateTicker(ticker string) error {
	t := strings.TrimSpace(ticker)
	switch {
	case t == "":
		return fmt.Errorf("%w: empty", ErrInvalidTicker)
	case len(t) > maxTickerLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTicker, t, maxTickerLen)
	case !tickerRe.MatchString(t):
		return fmt.Errorf("%w: %q has disallowed characters", ErrInvalidTicker, t)
	}
	return nil
}

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Periods and Intervals are the values the provider accepts.
var (
	Periods   = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "3y", "5y", "10y", "ytd", "max"}
	Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
)

// IsIntraday reports whether interval is finer than a day.
func IsIntraday(interval string) bool {
	return strings.HasSuffix(interval, "m") && !strings.HasSuffix(interval, "mo") ||
		strings.HasSuffix(interval, "h")
}
