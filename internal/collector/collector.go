// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/apex/log"

	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/result"
)

// HistoryRequest identifies one historical download.
type HistoryRequest struct {
	Ticker   string
	Period   string
	Interval string
}

// StockCollector downloads stock data and caches it per day.
type StockCollector struct {
	provider market.Provider
	history  *cacheutil.Memoizer[HistoryRequest]
	complete *cacheutil.Memoizer[string]
}

// New returns a StockCollector backed by provider. Options configure the
// cache shared by the memoized operations.
func New(provider market.Provider, opts ...cacheutil.Option) *StockCollector {
	c := &StockCollector{provider: provider}
	c.history = cacheutil.NewMemoizer(c.downloadHistory, historyKey,
		append(slices.Clone(opts), cacheutil.WithKind(result.KindTable))...)
	c.complete = cacheutil.NewMemoizer(c.downloadComplete, completeKey,
		append(slices.Clone(opts), cacheutil.WithKind(result.KindMapping))...)
	return c
}

// CacheDir returns the directory the collector caches into.
func (c *StockCollector) CacheDir() string { return c.history.Dir() }

// historyKey derives {TICKER}_{period}, plus _{interval} when the interval
// isn't daily. Only known periods and intervals make a key, so no history
// entry can land on a complete-data key.
func historyKey(req HistoryRequest) (string, error) {
	ticker := market.NormalizeTicker(req.Ticker)
	if ticker == "" || req.Period == "" {
		return "", errors.New("ticker and period are required")
	}
	if !slices.Contains(market.Periods, req.Period) {
		return "", fmt.Errorf("unknown period %q", req.Period)
	}

	key := ticker + "_" + req.Period
	switch {
	case req.Interval == "" || req.Interval == "1d":
	case slices.Contains(market.Intervals, req.Interval):
		key += "_" + req.Interval
	default:
		return "", fmt.Errorf("unknown interval %q", req.Interval)
	}
	return key, nil
}

func completeKey(ticker string) (string, error) {
	t := market.NormalizeTicker(ticker)
	if t == "" {
		return "", errors.New("ticker is required")
	}
	return t + "_complete", nil
}

// FetchStockData returns OHLCV rows for ticker with a Ticker column added.
// Invalid tickers and upstream failures are logged and yield nil.
func (c *StockCollector) FetchStockData(ctx context.Context, ticker, period, interval string) *result.Table {
	if err := market.ValidateTicker(ticker); err != nil {
		log.WithError(err).Errorf("invalid ticker: %s", ticker)
		return nil
	}

	req := HistoryRequest{Ticker: market.NormalizeTicker(ticker), Period: period, Interval: interval}
	r, err := c.history.Call(ctx, req)
	if err != nil {
		log.WithError(err).Errorf("failed to fetch data for %s", ticker)
		return nil
	}

	tbl, ok := r.(*result.Table)
	if !ok || tbl.Len() == 0 {
		log.Errorf("no data found for %s", ticker)
		return nil
	}

	log.Infof("fetched %s (%d records)", req.Ticker, tbl.Len())
	return tbl
}

func (c *StockCollector) downloadHistory(ctx context.Context, req HistoryRequest) (result.Result, error) {
	tbl, err := c.provider.History(ctx, req.Ticker, req.Period, req.Interval)
	if err != nil {
		return nil, err
	}
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("%w for %s", market.ErrNoData, req.Ticker)
	}
	tbl.SetColumn("Ticker", req.Ticker)
	return tbl, nil
}

// FetchMultipleStocks fetches each ticker in order. Tickers without data are
// left out of the returned map.
func (c *StockCollector) FetchMultipleStocks(ctx context.Context, tickers []string, period, interval string) map[string]*result.Table {
	out := make(map[string]*result.Table, len(tickers))

	log.Infof("fetching %d tickers", len(tickers))
	for _, t := range tickers {
		if tbl := c.FetchStockData(ctx, t, period, interval); tbl != nil {
			out[t] = tbl
		}
	}
	log.Infof("completed: %d/%d tickers fetched", len(out), len(tickers))

	return out
}

// InfoFields are the fundamentals GetStockInfo keeps.
var InfoFields = []string{
	"symbol",
	"longName",
	"sector",
	"industry",
	"marketCap",
	"currentPrice",
	"currency",
	"exchange",
	"country",
}

// GetStockInfo returns the relevant fundamentals for ticker. It is never
// cached. Failures are logged and yield an empty mapping.
func (c *StockCollector) GetStockInfo(ctx context.Context, ticker string) result.Mapping {
	out := result.Mapping{}

	info, err := c.provider.Info(ctx, market.NormalizeTicker(ticker))
	if err != nil {
		log.WithError(err).Errorf("failed to fetch info for %s", ticker)
		return out
	}

	for _, f := range InfoFields {
		if v, ok := info[f]; ok {
			out[f] = v
		}
	}
	return out
}

// FetchCompleteStockData gathers every source the provider offers for ticker
// into one mapping. Sources that fail or come back empty are omitted and the
// names of those that succeeded are listed under data_sources.
func (c *StockCollector) FetchCompleteStockData(ctx context.Context, ticker string) result.Mapping {
	if err := market.ValidateTicker(ticker); err != nil {
		log.WithError(err).Errorf("invalid ticker: %s", ticker)
		return nil
	}

	r, err := c.complete.Call(ctx, market.NormalizeTicker(ticker))
	if err != nil {
		log.WithError(err).Errorf("failed to fetch complete data for %s", ticker)
		return nil
	}

	m, _ := r.(result.Mapping)
	return m
}

// HistorySpec is one period/interval pair downloaded by
// FetchCompleteStockData.
type HistorySpec struct {
	Period   string
	Interval string
}

// Name returns the {period}_{interval} label used under historical.
func (h HistorySpec) Name() string { return h.Period + "_" + h.Interval }

// CompleteHistory lists the histories FetchCompleteStockData downloads.
var CompleteHistory = []HistorySpec{
	{"max", "1d"},
	{"5y", "1wk"},
	{"1y", "1d"},
	{"5d", "1h"},
}

var marketDataFields = []string{
	"marketCap",
	"currentPrice",
	"regularMarketPrice",
	"trailingPE",
	"forwardPE",
	"dividendYield",
	"beta",
	"fiftyTwoWeekHigh",
	"fiftyTwoWeekLow",
	"averageVolume",
	"sharesOutstanding",
}

func (c *StockCollector) downloadComplete(ctx context.Context, ticker string) (result.Result, error) {
	out := result.Mapping{"ticker": result.String(ticker)}
	var sources []string

	source := func(name string, r result.Result, err error) {
		if err != nil {
			log.WithError(err).Warnf("%s unavailable for %s", name, ticker)
			return
		}
		if out.SetIfPresent(name, r) {
			sources = append(sources, name)
		}
	}

	historical := result.Mapping{}
	for _, h := range CompleteHistory {
		tbl, err := c.provider.History(ctx, ticker, h.Period, h.Interval)
		if err == nil && tbl.Len() == 0 {
			err = market.ErrNoData
		}
		if err != nil {
			log.WithError(err).Warnf("history %s unavailable for %s", h.Name(), ticker)
			continue
		}
		historical.SetIfPresent(h.Name(), result.Mapping{
			"data":    tbl,
			"records": result.Int(int64(tbl.Len())),
		})
	}
	source("historical", historical, nil)

	info, err := c.provider.Info(ctx, ticker)
	source("key_metrics", keyMetrics(info), err)

	div, err := c.provider.Dividends(ctx, ticker)
	source("dividends", dividendSummary(div), err)

	splits, err := c.provider.Splits(ctx, ticker)
	var splitSummary result.Result
	if splits.Len() > 0 {
		splitSummary = result.Mapping{
			"data":         splits,
			"total_splits": result.Int(int64(splits.Len())),
		}
	}
	source("splits", splitSummary, err)

	fin, err := c.provider.Financials(ctx, ticker)
	source("financials", fin, err)

	recs, err := c.provider.Recommendations(ctx, ticker)
	source("recommendations", recs, err)

	news, err := c.provider.News(ctx, ticker)
	source("news", news, err)

	opts, err := c.provider.Options(ctx, ticker)
	source("options", opts, err)

	if len(sources) == 0 {
		return nil, fmt.Errorf("%w for %s", market.ErrNoData, ticker)
	}

	list := result.NewTable("source")
	for _, s := range sources {
		_ = list.Append(s)
	}
	out["data_sources"] = list

	log.Infof("complete data for %s: %d sources", ticker, len(sources))
	return out, nil
}

// DataSources returns the source names recorded by FetchCompleteStockData.
func DataSources(m result.Mapping) []string {
	return m.Table("data_sources").Strings("source")
}

func keyMetrics(info result.Mapping) result.Result {
	if len(info) == 0 {
		return nil
	}
	md := result.Mapping{}
	for _, f := range marketDataFields {
		if v, ok := info[f]; ok {
			md[f] = v
		}
	}
	out := result.Mapping{"basic_info": info}
	out.SetIfPresent("market_data", md)
	return out
}

func dividendSummary(div *result.Table) result.Result {
	amounts := div.Floats("Dividends")
	if len(amounts) == 0 {
		return nil
	}
	var total float64
	for _, a := range amounts {
		total += a
	}
	return result.Mapping{
		"data":             div,
		"total_payments":   result.Int(int64(len(amounts))),
		"total_amount":     result.Float(total),
		"average_dividend": result.Float(total / float64(len(amounts))),
	}
}
