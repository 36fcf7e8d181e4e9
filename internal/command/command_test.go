// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/staranto/stockctl/internal/config"
	"github.com/staranto/stockctl/internal/market"
	"github.com/staranto/stockctl/internal/meta"
	"github.com/staranto/stockctl/internal/result"
)

var day0 = time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

// stubProvider serves canned data and counts History calls.
type stubProvider struct {
	historyCalls int
	failAll      bool
}

func (s *stubProvider) History(_ context.Context, ticker, _, _ string) (*result.Table, error) {
	s.historyCalls++
	if s.failAll || ticker == "NODATA" {
		return nil, market.ErrNoData
	}
	t := result.NewTable("Date", "Open", "High", "Low", "Close", "Volume")
	_ = t.Append("2023-12-28", 193.0, 194.6, 192.5, 193.58, 34049900.0)
	_ = t.Append("2023-12-29", 193.9, 194.4, 191.7, 192.53, 42628800.0)
	return t, nil
}

func (s *stubProvider) Info(context.Context, string) (result.Mapping, error) {
	if s.failAll {
		return nil, market.ErrNoData
	}
	return result.Mapping{
		"symbol":       result.String("AAPL"),
		"longName":     result.String("Apple Inc."),
		"sector":       result.String("Technology"),
		"marketCap":    result.Float(2.9e12),
		"currentPrice": result.Float(192.53),
	}, nil
}

func (s *stubProvider) Dividends(context.Context, string) (*result.Table, error) {
	t := result.NewTable("Date", "Dividends")
	if !s.failAll {
		_ = t.Append("2023-11-10", 0.24)
	}
	return t, nil
}

func (s *stubProvider) Splits(context.Context, string) (*result.Table, error) {
	return result.NewTable("Date", "Numerator", "Denominator", "Ratio"), nil
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

// run executes args against a fresh app and returns stdout.
func run(t *testing.T, m meta.Meta, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	m.Stdout = &out
	if m.Now == nil {
		m.Now = func() time.Time { return day0 }
	}

	app := NewApp(m)
	err := app.Run(context.Background(), append([]string{"stockctl"}, args...))
	return out.String(), err
}

func TestHq(t *testing.T) {
	dir := t.TempDir()
	p := &stubProvider{}
	m := meta.Meta{Provider: p}

	out, err := run(t, m, "--cache-dir", dir, "hq", "aapl", "-o", "json")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0]["Ticker"])
	assert.Equal(t, "2023-12-28", rows[0]["Date"])
	assert.FileExists(t, filepath.Join(dir, "AAPL_1y_2024-01-01.json"))

	// Second run on the same day is served from disk.
	_, err = run(t, m, "--cache-dir", dir, "hq", "AAPL", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, 1, p.historyCalls)
}

func TestHqNoCache(t *testing.T) {
	dir := t.TempDir()
	p := &stubProvider{}
	m := meta.Meta{Provider: p}

	for range 2 {
		_, err := run(t, m, "--cache-dir", dir, "--no-cache", "hq", "AAPL", "-o", "json")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.historyCalls)
	assert.NoFileExists(t, filepath.Join(dir, "AAPL_1y_2024-01-01.json"))
}

func TestHqMultipleTickers(t *testing.T) {
	dir := t.TempDir()
	m := meta.Meta{Provider: &stubProvider{}}

	out, err := run(t, m, "--cache-dir", dir, "hq", "MSFT", "AAPL", "NODATA",
		"-o", "json", "--columns", "Ticker,Close", "--sort", "Ticker,-Close")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "AAPL", rows[0]["Ticker"])
	assert.InDelta(t, 193.58, rows[0]["Close"], 0.0001)
	assert.Equal(t, "MSFT", rows[3]["Ticker"])
	assert.NotContains(t, rows[0], "Volume")
}

func TestHqDuplicateTickers(t *testing.T) {
	p := &stubProvider{}
	m := meta.Meta{Provider: p}

	out, err := run(t, m, "--cache-dir", t.TempDir(), "hq", "AAPL", "msft", "aapl", "MSFT",
		"-o", "json", "--columns", "Ticker")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, "AAPL", rows[0]["Ticker"])
	assert.Equal(t, "AAPL", rows[1]["Ticker"])
	assert.Equal(t, "MSFT", rows[2]["Ticker"])
	assert.Equal(t, 2, p.historyCalls)
}

func TestUniqueTickers(t *testing.T) {
	assert.Equal(t, []string{"MSFT", "AAPL"}, uniqueTickers([]string{"msft", " AAPL", "MSFT", "aapl"}))
	assert.Empty(t, uniqueTickers(nil))
}

func TestHqTail(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{}}

	out, err := run(t, m, "--cache-dir", t.TempDir(), "hq", "AAPL", "-o", "json", "--tail", "1")
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-12-29", rows[0]["Date"])
}

func TestHqValidation(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{}}
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no ticker", []string{"hq"}},
		{"bad ticker", []string{"hq", "AA PL"}},
		{"bad period", []string{"hq", "AAPL", "--period", "7y"}},
		{"bad interval", []string{"hq", "AAPL", "--interval", "2h"}},
		{"bad output", []string{"hq", "AAPL", "--output", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, m, append([]string{"--cache-dir", dir}, tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestHqNoData(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{failAll: true}}
	_, err := run(t, m, "--cache-dir", t.TempDir(), "hq", "AAPL")
	assert.Error(t, err)
}

func TestIq(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{}}

	out, err := run(t, m, "--cache-dir", t.TempDir(), "iq", "AAPL", "-o", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "Apple Inc.", info["longName"])
	assert.Equal(t, "Technology", info["sector"])

	out, err = run(t, m, "--cache-dir", t.TempDir(), "iq", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "longName")
	assert.Contains(t, out, "Apple Inc.")
}

func TestIqFailure(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{failAll: true}}
	_, err := run(t, m, "--cache-dir", t.TempDir(), "iq", "AAPL")
	assert.Error(t, err)
}

func TestEtl(t *testing.T) {
	dir := t.TempDir()
	m := meta.Meta{Provider: &stubProvider{}}

	out, err := run(t, m, "--cache-dir", dir, "etl", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "ETL completed successfully")
	assert.FileExists(t, filepath.Join(dir, "AAPL_complete_2024-01-01.json"))
}

func TestEtlDefaultTicker(t *testing.T) {
	dir := t.TempDir()
	m := meta.Meta{Provider: &stubProvider{}}

	_, err := run(t, m, "--cache-dir", dir, "etl")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, DefaultTicker+"_complete_2024-01-01.json"))
}

func TestEtlFailure(t *testing.T) {
	m := meta.Meta{Provider: &stubProvider{failAll: true}}

	out, err := run(t, m, "--cache-dir", t.TempDir(), "etl", "AAPL")
	require.Error(t, err)

	var ec cli.ExitCoder
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, exitETLFailed, ec.ExitCode())
	assert.Contains(t, out, "ETL failed")
}

func TestCompletion(t *testing.T) {
	out, err := run(t, meta.Meta{}, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "complete -F _stockctl stockctl")

	out, err = run(t, meta.Meta{}, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef stockctl")
}

func TestExpandArgs(t *testing.T) {
	abs, err := filepath.Abs(filepath.Join("testdata", "sets.yaml"))
	require.NoError(t, err)
	t.Setenv("STOCKCTL_CFG", abs)
	_, err = config.Load()
	require.NoError(t, err)
	t.Cleanup(func() { config.Config = config.Type{} })

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "defaults",
			args: []string{"stockctl", "hq", "AAPL"},
			want: []string{"stockctl", "hq", "--period", "5d", "AAPL"},
		},
		{
			name: "named set",
			args: []string{"stockctl", "hq", "AAPL", "@wide", "-o", "json"},
			want: []string{"stockctl", "hq", "--period", "max", "--interval", "1wk", "--titles", "AAPL", "-o", "json"},
		},
		{
			name: "unknown set",
			args: []string{"stockctl", "hq", "@nope", "AAPL"},
			want: []string{"stockctl", "hq", "AAPL"},
		},
		{
			name: "no sets for command",
			args: []string{"stockctl", "iq", "AAPL"},
			want: []string{"stockctl", "iq", "AAPL"},
		},
		{
			name: "help",
			args: []string{"stockctl", "hq", "AAPL", "-h"},
			want: []string{"stockctl", "hq", "--help"},
		},
		{
			name: "root flag first",
			args: []string{"stockctl", "--version"},
			want: []string{"stockctl", "--version"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandArgs(tt.args))
		})
	}
}

func TestGetMeta(t *testing.T) {
	m := meta.Meta{Args: []string{"stockctl"}}

	assert.Equal(t, meta.Meta{}, GetMeta(nil))
	assert.Equal(t, meta.Meta{}, GetMeta(&cli.Command{Name: "bare"}))
	assert.Equal(t, m.Args, GetMeta(&cli.Command{Metadata: map[string]any{"meta": m}}).Args)
}
