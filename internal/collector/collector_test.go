// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/stockctl/internal/cacheutil"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/result"
)

// stubProvider serves canned data and counts History calls.
type stubProvider struct {
	historyCalls int
	infoErr      error
	noDividends  bool
	failAll      bool
	nilHistory   bool
}

func history(closes ...float64) *result.Table {
	t := result.NewTable("Date", "Open", "High", "Low", "Close", "Volume")
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		_ = t.Append(day.AddDate(0, 0, i).Format("2006-01-02"), c-1, c+1, c-2, c, 1000.0*float64(i+1))
	}
	return t
}

func (s *stubProvider) History(_ context.Context, ticker, _, _ string) (*result.Table, error) {
	s.historyCalls++
	if s.failAll || ticker == "NODATA" {
		return nil, market.ErrNoData
	}
	if s.nilHistory {
		return nil, nil
	}
	return history(100, 110, 120), nil
}

func (s *stubProvider) Info(context.Context, string) (result.Mapping, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	if s.failAll {
		return nil, market.ErrNoData
	}
	return result.Mapping{
		"symbol":       result.String("AAPL"),
		"longName":     result.String("Apple Inc."),
		"sector":       result.String("Technology"),
		"marketCap":    result.Float(2.9e12),
		"currentPrice": result.Float(185.64),
		"website":      result.String("https://apple.com"),
	}, nil
}

func (s *stubProvider) Dividends(context.Context, string) (*result.Table, error) {
	t := result.NewTable("Date", "Dividends")
	if s.noDividends || s.failAll {
		return t, nil
	}
	_ = t.Append("2023-02-10", 0.23)
	_ = t.Append("2023-05-12", 0.24)
	return t, nil
}

func (s *stubProvider) Splits(context.Context, string) (*result.Table, error) {
	t := result.NewTable("Date", "Numerator", "Denominator", "Ratio")
	if !s.failAll {
		_ = t.Append("2020-08-31", 4.0, 1.0, "4:1")
	}
	return t, nil
}

func (s *stubProvider) Financials(context.Context, string) (result.Mapping, error) {
	return nil, errors.New("not available")
}

func (s *stubProvider) Recommendations(context.Context, string) (*result.Table, error) {
	return nil, errors.New("not available")
}

func (s *stubProvider) News(context.Context, string) (*result.Table, error) {
	return result.NewTable("Title"), nil
}

func (s *stubProvider) Options(context.Context, string) (result.Mapping, error) {
	return result.Mapping{}, nil
}

func newCollector(t *testing.T, p market.Provider) *StockCollector {
	t.Helper()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return New(p,
		cacheutil.WithDir(t.TempDir()),
		cacheutil.WithClock(func() time.Time { return now }),
		cacheutil.WithEnabled(true),
	)
}

func TestFetchStockData(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	tbl := c.FetchStockData(context.Background(), "aapl", "1y", "1d")
	require.NotNil(t, tbl)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"AAPL", "AAPL", "AAPL"}, tbl.Strings("Ticker"))
	assert.FileExists(t, filepath.Join(c.CacheDir(), "AAPL_1y_2024-01-01.json"))

	again := c.FetchStockData(context.Background(), "AAPL", "1y", "1d")
	assert.Equal(t, tbl, again)
	assert.Equal(t, 1, p.historyCalls, "second call is served from the cache")
}

func TestFetchStockDataInvalidTicker(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	assert.Nil(t, c.FetchStockData(context.Background(), "", "1y", "1d"))
	assert.Nil(t, c.FetchStockData(context.Background(), "NOT A TICKER", "1y", "1d"))
	assert.Zero(t, p.historyCalls)
}

func TestFetchStockDataUpstreamFailure(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	assert.Nil(t, c.FetchStockData(context.Background(), "NODATA", "1y", "1d"))

	entries, err := os.ReadDir(c.CacheDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "failures are not cached")
}

func TestFetchMultipleStocks(t *testing.T) {
	c := newCollector(t, &stubProvider{})

	got := c.FetchMultipleStocks(context.Background(), []string{"AAPL", "NODATA", "MSFT", "bad ticker"}, "1y", "1d")
	require.Len(t, got, 2)
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "MSFT")
	assert.Equal(t, "MSFT", got["MSFT"].Cell(0, "Ticker"))
}

func TestGetStockInfo(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	info := c.GetStockInfo(context.Background(), "aapl")
	assert.Equal(t, "Apple Inc.", info.Str("", "longName"))
	assert.Nil(t, info.Get("website"), "only relevant fields are kept")

	entries, _ := os.ReadDir(c.CacheDir())
	assert.Empty(t, entries, "info is never cached")

	p.infoErr = errors.New("boom")
	info = c.GetStockInfo(context.Background(), "AAPL")
	assert.NotNil(t, info)
	assert.Empty(t, info)
}

func TestFetchCompleteStockData(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	data := c.FetchCompleteStockData(context.Background(), "aapl")
	require.NotNil(t, data)

	assert.Equal(t, "AAPL", data.Str("", "ticker"))
	assert.Equal(t, []string{"historical", "key_metrics", "dividends", "splits"}, DataSources(data))

	for _, h := range CompleteHistory {
		records, ok := data.Float("historical", h.Name(), "records")
		assert.True(t, ok, h.Name())
		assert.Equal(t, 3.0, records)
	}

	assert.Equal(t, "Technology", data.Str("", "key_metrics", "basic_info", "sector"))
	mcap, _ := data.Float("key_metrics", "market_data", "marketCap")
	assert.Equal(t, 2.9e12, mcap)

	payments, _ := data.Float("dividends", "total_payments")
	assert.Equal(t, 2.0, payments)
	avg, _ := data.Float("dividends", "average_dividend")
	assert.InDelta(t, 0.235, avg, 1e-9)

	splits, _ := data.Float("splits", "total_splits")
	assert.Equal(t, 1.0, splits)

	for _, missing := range []string{"financials", "recommendations", "news", "options"} {
		assert.Nil(t, data.Get(missing), missing)
	}

	assert.FileExists(t, filepath.Join(c.CacheDir(), "AAPL_complete_2024-01-01.json"))

	calls := p.historyCalls
	again := c.FetchCompleteStockData(context.Background(), "AAPL")
	assert.Equal(t, data, again)
	assert.Equal(t, calls, p.historyCalls)
}

func TestFetchCompleteStockDataPartial(t *testing.T) {
	c := newCollector(t, &stubProvider{noDividends: true, infoErr: errors.New("down")})

	data := c.FetchCompleteStockData(context.Background(), "AAPL")
	require.NotNil(t, data)
	assert.Equal(t, []string{"historical", "splits"}, DataSources(data))
	assert.Nil(t, data.Get("dividends"))
	assert.Nil(t, data.Get("key_metrics"))
}

func TestFetchCompleteStockDataNothing(t *testing.T) {
	c := newCollector(t, &stubProvider{failAll: true})

	assert.Nil(t, c.FetchCompleteStockData(context.Background(), "AAPL"))
	assert.Nil(t, c.FetchCompleteStockData(context.Background(), "../x"))
}

func TestKeys(t *testing.T) {
	k, err := historyKey(HistoryRequest{Ticker: "msft", Period: "5y", Interval: "1wk"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT_5y_1wk", k)

	k, err = historyKey(HistoryRequest{Ticker: "msft", Period: "1y", Interval: "1d"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT_1y", k, "daily bars keep the short key")

	k, err = historyKey(HistoryRequest{Ticker: "msft", Period: "1y"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT_1y", k)

	_, err = historyKey(HistoryRequest{Ticker: "MSFT"})
	assert.Error(t, err)

	for _, period := range []string{"complete", "1y_x", "bogus"} {
		_, err = historyKey(HistoryRequest{Ticker: "MSFT", Period: period})
		assert.Error(t, err, period)
	}
	_, err = historyKey(HistoryRequest{Ticker: "MSFT", Period: "1y", Interval: "complete"})
	assert.Error(t, err)

	k, err = completeKey(" aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL_complete", k)

	for _, period := range market.Periods {
		for _, interval := range append([]string{""}, market.Intervals...) {
			hk, err := historyKey(HistoryRequest{Ticker: "AAPL", Period: period, Interval: interval})
			require.NoError(t, err)
			assert.NotEqual(t, k, hk)
		}
	}
}

func TestFetchStockDataIntervalsKeptApart(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	require.NotNil(t, c.FetchStockData(context.Background(), "AAPL", "1y", "1d"))
	require.NotNil(t, c.FetchStockData(context.Background(), "AAPL", "1y", "1wk"))
	assert.Equal(t, 2, p.historyCalls)
	assert.FileExists(t, filepath.Join(c.CacheDir(), "AAPL_1y_2024-01-01.json"))
	assert.FileExists(t, filepath.Join(c.CacheDir(), "AAPL_1y_1wk_2024-01-01.json"))
}

func TestFetchStockDataNilHistory(t *testing.T) {
	p := &stubProvider{nilHistory: true}
	c := newCollector(t, p)

	assert.NotPanics(t, func() {
		assert.Nil(t, c.FetchStockData(context.Background(), "AAPL", "1y", "1d"))
	})

	entries, err := os.ReadDir(c.CacheDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompleteKeyCannotBeShadowed(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)
	ctx := context.Background()

	// A history request can't write to the complete entry.
	assert.Nil(t, c.FetchStockData(ctx, "AAPL", "complete", "1d"))
	assert.Zero(t, p.historyCalls)
	assert.NoFileExists(t, filepath.Join(c.CacheDir(), "AAPL_complete_2024-01-01.json"))

	// A table left under the complete key is replaced, not returned.
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	data, err := result.Encode("AAPL_complete_2024-01-01", now, history(1, 2))
	require.NoError(t, err)
	require.NoError(t, cacheutil.WriteRaw(c.CacheDir(), "AAPL_complete_2024-01-01", data))

	got := c.FetchCompleteStockData(ctx, "AAPL")
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Str("", "ticker"))

	entry, err := cacheutil.Read(c.CacheDir(), "AAPL_complete_2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, result.KindMapping, entry.Result.Kind())
}

func TestFetchStockDataWrongKindEntry(t *testing.T) {
	p := &stubProvider{}
	c := newCollector(t, p)

	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	data, err := result.Encode("AAPL_1y_2024-01-01", now, result.Mapping{"x": result.Float(1)})
	require.NoError(t, err)
	require.NoError(t, cacheutil.WriteRaw(c.CacheDir(), "AAPL_1y_2024-01-01", data))

	tbl := c.FetchStockData(context.Background(), "AAPL", "1y", "1d")
	require.NotNil(t, tbl)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 1, p.historyCalls)
}
