// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package etl

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"

	"github.com/staranto/stockctl/internal/collector"
	"github.com/staranto/stockctl/internal/result"
)

// Source provides the complete data set for a ticker.
type Source interface {
	FetchCompleteStockData(ctx context.Context, ticker string) result.Mapping
}

// PreferredPeriods are checked in order; the first historical series present
// drives the price summary.
var PreferredPeriods = []string{"max_1d", "10y_1d", "5y_1d", "3y_1d", "1y_1d"}

// Summary is the transformed view of one ticker.
type Summary struct {
	Ticker      string
	ProcessedAt time.Time
	DataPeriod  string
	Price       *PriceData
	Company     *CompanyInfo
	Dividends   *DividendData
	Splits      *SplitData
}

type PriceData struct {
	CurrentPrice   float64
	FirstPrice     float64
	MaxPrice       float64
	MinPrice       float64
	TotalReturnPct float64
	AvgVolume      int64
	TotalRecords   int
	DateRange      string
}

type CompanyInfo struct {
	Name         string
	Sector       string
	Industry     string
	MarketCap    float64
	CurrentPrice float64
}

type DividendData struct {
	TotalPayments int
	TotalAmount   float64
	AvgDividend   float64
}

type SplitData struct {
	TotalSplits int
}

// Extract downloads everything available for ticker. It returns nil when no
// source produced data.
func Extract(ctx context.Context, src Source, ticker string) result.Mapping {
	start := time.Now()

	raw := src.FetchCompleteStockData(ctx, ticker)
	sources := collector.DataSources(raw)
	if len(sources) == 0 {
		log.Errorf("extract: no data for %s", ticker)
		return nil
	}

	log.WithField("sources", len(sources)).Infof("extract completed in %.2fs", time.Since(start).Seconds())
	return raw
}

// Transform summarizes raw. It returns nil for nil input.
func Transform(raw result.Mapping, now time.Time) *Summary {
	if raw == nil {
		log.Error("transform: nothing to transform")
		return nil
	}

	s := &Summary{
		Ticker:      raw.Str("UNKNOWN", "ticker"),
		ProcessedAt: now,
	}

	if hist := raw.Mapping("historical"); hist != nil {
		for _, p := range PreferredPeriods {
			if data := hist.Table(p, "data"); data.Len() > 0 {
				s.DataPeriod = p
				s.Price = priceData(data)
				break
			}
		}
		if s.Price != nil {
			log.Infof("transform: %d historical records", s.Price.TotalRecords)
		}
	}

	if metrics := raw.Mapping("key_metrics"); metrics != nil {
		basic := metrics.Mapping("basic_info")
		s.Company = &CompanyInfo{
			Name:     basic.Str("N/A", "longName"),
			Sector:   basic.Str("N/A", "sector"),
			Industry: basic.Str("N/A", "industry"),
		}
		s.Company.MarketCap, _ = metrics.Float("market_data", "marketCap")
		s.Company.CurrentPrice, _ = metrics.Float("market_data", "currentPrice")
	}

	if div := raw.Mapping("dividends"); div != nil {
		payments, _ := div.Float("total_payments")
		total, _ := div.Float("total_amount")
		avg, _ := div.Float("average_dividend")
		s.Dividends = &DividendData{
			TotalPayments: int(payments),
			TotalAmount:   round2(total),
			AvgDividend:   round2(avg),
		}
		log.Infof("transform: %d dividend payments", s.Dividends.TotalPayments)
	}

	if splits := raw.Mapping("splits"); splits != nil {
		n, _ := splits.Float("total_splits")
		s.Splits = &SplitData{TotalSplits: int(n)}
	}

	return s
}

func priceData(t *result.Table) *PriceData {
	closes := t.Floats("Close")
	if len(closes) == 0 {
		return nil
	}

	first, last := closes[0], closes[len(closes)-1]
	p := &PriceData{
		CurrentPrice: round2(last),
		FirstPrice:   round2(first),
		MaxPrice:     round2(maxOf(t.Floats("High"))),
		MinPrice:     round2(minOf(t.Floats("Low"))),
		TotalRecords: t.Len(),
	}
	if first != 0 {
		p.TotalReturnPct = round2((last - first) / first * 100)
	}
	if vols := t.Floats("Volume"); len(vols) > 0 {
		var sum float64
		for _, v := range vols {
			sum += v
		}
		p.AvgVolume = int64(sum / float64(len(vols)))
	}
	if dates := t.Strings("Date"); len(dates) > 0 {
		p.DateRange = dates[0] + " to " + dates[len(dates)-1]
	}
	return p
}

// Load writes the report for s to w. It returns false when there is nothing
// to report.
func Load(w io.Writer, s *Summary) bool {
	if s == nil {
		fmt.Fprintln(w, "No processed data to report")
		return false
	}

	fmt.Fprintf(w, "\nCOMPANY: %s\n%s\n", s.Ticker, strings.Repeat("=", 30))

	if c := s.Company; c != nil {
		fmt.Fprintf(w, "Name:        %s\n", c.Name)
		fmt.Fprintf(w, "Sector:      %s\n", c.Sector)
		fmt.Fprintf(w, "Industry:    %s\n", c.Industry)
		if c.MarketCap > 0 {
			fmt.Fprintf(w, "Market cap:  $%.1fB\n", c.MarketCap/1e9)
		}
	}

	if p := s.Price; p != nil {
		fmt.Fprintln(w, "\nPRICES:")
		fmt.Fprintf(w, "Current:      $%s\n", humanize.CommafWithDigits(p.CurrentPrice, 2))
		fmt.Fprintf(w, "High:         $%s\n", humanize.CommafWithDigits(p.MaxPrice, 2))
		fmt.Fprintf(w, "Low:          $%s\n", humanize.CommafWithDigits(p.MinPrice, 2))
		fmt.Fprintf(w, "Total return: %.2f%%\n", p.TotalReturnPct)
		fmt.Fprintf(w, "Avg volume:   %s\n", humanize.Comma(p.AvgVolume))
		fmt.Fprintf(w, "Records:      %s\n", humanize.Comma(int64(p.TotalRecords)))
		fmt.Fprintf(w, "Date range:   %s\n", p.DateRange)
		fmt.Fprintf(w, "Period used:  %s\n", s.DataPeriod)
	}

	if d := s.Dividends; d != nil {
		fmt.Fprintln(w, "\nDIVIDENDS:")
		fmt.Fprintf(w, "Payments:     %d\n", d.TotalPayments)
		fmt.Fprintf(w, "Total amount: $%.2f\n", d.TotalAmount)
		fmt.Fprintf(w, "Per payment:  $%.2f\n", d.AvgDividend)
	} else {
		fmt.Fprintln(w, "\nDIVIDENDS: no dividend history")
	}

	if sp := s.Splits; sp != nil {
		fmt.Fprintf(w, "\nSPLITS: %d events\n", sp.TotalSplits)
	}

	return true
}

// Run executes the whole pipeline for ticker and reports to w.
func Run(ctx context.Context, w io.Writer, src Source, ticker string, now func() time.Time) bool {
	rule := strings.Repeat("=", 60)
	const stamp = "2006-01-02 15:04:05"

	fmt.Fprintf(w, "stockctl ETL pipeline\n%s\n", rule)
	fmt.Fprintf(w, "Ticker: %s\nStart:  %s\n%s\n", ticker, now().Format(stamp), rule)

	raw := Extract(ctx, src, ticker)
	summary := Transform(raw, now())
	ok := Load(w, summary)

	fmt.Fprintf(w, "\n%s\nRESULT\n%s\n", rule, rule)
	if ok {
		fmt.Fprintln(w, "ETL completed successfully")
	} else {
		fmt.Fprintln(w, "ETL failed, see the log for details")
	}
	fmt.Fprintf(w, "End:    %s\n", now().Format(stamp))

	return ok
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func maxOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m := v[0]
	for _, x := range v[1:] {
		m = math.Max(m, x)
	}
	return m
}

func minOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	m := v[0]
	for _, x := range v[1:] {
		m = math.Min(m, x)
	}
	return m
}
