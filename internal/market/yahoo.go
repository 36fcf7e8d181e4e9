// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"github.com/staranto/stockctl/internal/result"
)

const (
	DefaultBaseURL = "https://query2.finance.yahoo.com"
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"

	defaultTimeout     = 10 * time.Second
	defaultMaxExpiries = 3
	defaultNewsCount   = 10
)

// Yahoo implements Provider against the Yahoo Finance JSON endpoints.
type Yahoo struct {
	baseURL     string
	client      *http.Client
	maxExpiries int
	now         func() time.Time
}

// YahooOption customizes a Yahoo provider.
type YahooOption func(*Yahoo)

// WithBaseURL points the provider at a different host, mostly for tests.
func WithBaseURL(u string) YahooOption {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) YahooOption {
	return func(y *Yahoo) {
		if d > 0 {
			y.client.Timeout = d
		}
	}
}

// WithMaxExpiries caps how many option expiries Options downloads.
func WithMaxExpiries(n int) YahooOption {
	return func(y *Yahoo) { y.maxExpiries = n }
}

// NewYahoo returns a Yahoo provider.
func NewYahoo(opts ...YahooOption) *Yahoo {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = defaultTimeout

	y := &Yahoo{
		baseURL:     DefaultBaseURL,
		client:      client,
		maxExpiries: defaultMaxExpiries,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// History implements Provider.
func (y *Yahoo) History(ctx context.Context, ticker, period, interval string) (*result.Table, error) {
	q := y.rangeParams(period)
	q.Set("interval", interval)
	q.Set("includePrePost", "false")

	chart, err := y.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz := chart.Get("meta.exchangeTimezoneName").String(); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	layout := "2006-01-02"
	if IsIntraday(interval) {
		layout = time.RFC3339
	}

	stamps := chart.Get("timestamp").Array()
	quote := chart.Get("indicators.quote.0")
	open, high := quote.Get("open").Array(), quote.Get("high").Array()
	low, closes := quote.Get("low").Array(), quote.Get("close").Array()
	volume := quote.Get("volume").Array()

	t := result.NewTable("Date", "Open", "High", "Low", "Close", "Volume")
	for i, ts := range stamps {
		// Rows without a close are gaps in the series; drop them.
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue
		}
		date := time.Unix(ts.Int(), 0).In(loc).Format(layout)
		if err := t.Append(date, num(open, i), num(high, i), num(low, i), closes[i].Float(), num(volume, i)); err != nil {
			return nil, err
		}
	}

	if t.Len() == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return t, nil
}

// Dividends implements Provider.
func (y *Yahoo) Dividends(ctx context.Context, ticker string) (*result.Table, error) {
	events, err := y.events(ctx, ticker, "div")
	if err != nil {
		return nil, err
	}

	t := result.NewTable("Date", "Dividends")
	for _, ev := range sortedEvents(events.Get("dividends")) {
		_ = t.Append(eventDate(ev), ev.Get("amount").Float())
	}
	return t, nil
}

// Splits implements Provider.
func (y *Yahoo) Splits(ctx context.Context, ticker string) (*result.Table, error) {
	events, err := y.events(ctx, ticker, "split")
	if err != nil {
		return nil, err
	}

	t := result.NewTable("Date", "Numerator", "Denominator", "Ratio")
	for _, ev := range sortedEvents(events.Get("splits")) {
		n, d := ev.Get("numerator").Float(), ev.Get("denominator").Float()
		ratio := ev.Get("splitRatio").String()
		if ratio == "" && d != 0 {
			ratio = strconv.FormatFloat(n, 'f', -1, 64) + ":" + strconv.FormatFloat(d, 'f', -1, 64)
		}
		_ = t.Append(eventDate(ev), n, d, ratio)
	}
	return t, nil
}

var infoFields = []struct{ name, path string }{
	{"symbol", "price.symbol"},
	{"shortName", "price.shortName"},
	{"longName", "price.longName"},
	{"currency", "price.currency"},
	{"exchange", "price.exchangeName"},
	{"quoteType", "price.quoteType"},
	{"marketCap", "price.marketCap"},
	{"regularMarketPrice", "price.regularMarketPrice"},
	{"currentPrice", "financialData.currentPrice"},
	{"targetMeanPrice", "financialData.targetMeanPrice"},
	{"recommendationKey", "financialData.recommendationKey"},
	{"totalRevenue", "financialData.totalRevenue"},
	{"profitMargins", "financialData.profitMargins"},
	{"sector", "assetProfile.sector"},
	{"industry", "assetProfile.industry"},
	{"country", "assetProfile.country"},
	{"website", "assetProfile.website"},
	{"fullTimeEmployees", "assetProfile.fullTimeEmployees"},
	{"longBusinessSummary", "assetProfile.longBusinessSummary"},
	{"trailingPE", "summaryDetail.trailingPE"},
	{"forwardPE", "summaryDetail.forwardPE"},
	{"dividendYield", "summaryDetail.dividendYield"},
	{"beta", "summaryDetail.beta"},
	{"fiftyTwoWeekHigh", "summaryDetail.fiftyTwoWeekHigh"},
	{"fiftyTwoWeekLow", "summaryDetail.fiftyTwoWeekLow"},
	{"averageVolume", "summaryDetail.averageVolume"},
	{"sharesOutstanding", "defaultKeyStatistics.sharesOutstanding"},
	{"enterpriseValue", "defaultKeyStatistics.enterpriseValue"},
	{"bookValue", "defaultKeyStatistics.bookValue"},
	{"priceToBook", "defaultKeyStatistics.priceToBook"},
}

// Info implements Provider.
func (y *Yahoo) Info(ctx context.Context, ticker string) (result.Mapping, error) {
	summary, err := y.quoteSummary(ctx, ticker, "price", "assetProfile", "summaryDetail", "financialData", "defaultKeyStatistics")
	if err != nil {
		return nil, err
	}

	info := result.Mapping{}
	for _, f := range infoFields {
		if v, ok := scalar(summary.Get(f.path)); ok {
			info[f.name] = v
		}
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return info, nil
}

var statements = []struct{ name, module, list string }{
	{"income_statement", "incomeStatementHistory", "incomeStatementHistory"},
	{"balance_sheet", "balanceSheetHistory", "balanceSheetStatements"},
	{"cash_flow", "cashflowStatementHistory", "cashflowStatements"},
}

// Financials implements Provider.
func (y *Yahoo) Financials(ctx context.Context, ticker string) (result.Mapping, error) {
	modules := make([]string, 0, len(statements))
	for _, s := range statements {
		modules = append(modules, s.module)
	}
	summary, err := y.quoteSummary(ctx, ticker, modules...)
	if err != nil {
		return nil, err
	}

	out := result.Mapping{}
	for _, s := range statements {
		out.SetIfPresent(s.name, statementTable(summary.Get(s.module+"."+s.list)))
	}
	return out, nil
}

// statementTable pivots a list of period statements into one row per period
// with a column per line item.
func statementTable(periods gjson.Result) *result.Table {
	seen := map[string]bool{}
	for _, p := range periods.Array() {
		p.ForEach(func(k, v gjson.Result) bool {
			if _, ok := scalar(v); ok && k.String() != "endDate" && k.String() != "maxAge" {
				seen[k.String()] = true
			}
			return true
		})
	}
	items := make([]string, 0, len(seen))
	for k := range seen {
		items = append(items, k)
	}
	sort.Strings(items)

	t := result.NewTable(append([]string{"EndDate"}, items...)...)
	for _, p := range periods.Array() {
		row := []any{time.Unix(p.Get("endDate.raw").Int(), 0).UTC().Format("2006-01-02")}
		for _, item := range items {
			if v, ok := scalar(p.Get(item)); ok {
				row = append(row, v.Value)
			} else {
				row = append(row, nil)
			}
		}
		_ = t.Append(row...)
	}
	return t
}

// Recommendations implements Provider.
func (y *Yahoo) Recommendations(ctx context.Context, ticker string) (*result.Table, error) {
	summary, err := y.quoteSummary(ctx, ticker, "recommendationTrend")
	if err != nil {
		return nil, err
	}

	t := result.NewTable("Period", "StrongBuy", "Buy", "Hold", "Sell", "StrongSell")
	for _, r := range summary.Get("recommendationTrend.trend").Array() {
		_ = t.Append(
			r.Get("period").String(),
			r.Get("strongBuy").Float(),
			r.Get("buy").Float(),
			r.Get("hold").Float(),
			r.Get("sell").Float(),
			r.Get("strongSell").Float(),
		)
	}
	return t, nil
}

// News implements Provider.
func (y *Yahoo) News(ctx context.Context, ticker string) (*result.Table, error) {
	q := url.Values{}
	q.Set("q", ticker)
	q.Set("quotesCount", "0")
	q.Set("newsCount", strconv.Itoa(defaultNewsCount))

	doc, err := y.getJSON(ctx, "/v1/finance/search", q)
	if err != nil {
		return nil, err
	}

	t := result.NewTable("Published", "Publisher", "Title", "Link")
	for _, n := range doc.Get("news").Array() {
		published := time.Unix(n.Get("providerPublishTime").Int(), 0).UTC()
		_ = t.Append(published, n.Get("publisher").String(), n.Get("title").String(), n.Get("link").String())
	}
	return t, nil
}

var optionColumns = []struct{ name, path string }{
	{"Contract", "contractSymbol"},
	{"Strike", "strike"},
	{"LastPrice", "lastPrice"},
	{"Bid", "bid"},
	{"Ask", "ask"},
	{"Volume", "volume"},
	{"OpenInterest", "openInterest"},
	{"ImpliedVolatility", "impliedVolatility"},
	{"InTheMoney", "inTheMoney"},
}

// Options implements Provider. Only the nearest expiries are downloaded.
func (y *Yahoo) Options(ctx context.Context, ticker string) (result.Mapping, error) {
	root, err := y.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(ticker), nil)
	if err != nil {
		return nil, err
	}

	expiries := root.Get("optionChain.result.0.expirationDates").Array()
	if y.maxExpiries > 0 && len(expiries) > y.maxExpiries {
		expiries = expiries[:y.maxExpiries]
	}

	out := result.Mapping{}
	for _, exp := range expiries {
		q := url.Values{}
		q.Set("date", exp.String())
		doc, err := y.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(ticker), q)
		if err != nil {
			log.WithError(err).Warnf("options chain %s %s", ticker, exp.String())
			continue
		}
		chain := doc.Get("optionChain.result.0.options.0")
		day := time.Unix(exp.Int(), 0).UTC().Format("2006-01-02")
		out.SetIfPresent(day, result.Mapping{
			"calls": contractsTable(chain.Get("calls")),
			"puts":  contractsTable(chain.Get("puts")),
		})
	}
	return out, nil
}

func contractsTable(contracts gjson.Result) *result.Table {
	cols := make([]string, 0, len(optionColumns))
	for _, c := range optionColumns {
		cols = append(cols, c.name)
	}
	t := result.NewTable(cols...)
	for _, c := range contracts.Array() {
		row := make([]any, 0, len(optionColumns))
		for _, col := range optionColumns {
			v, _ := scalar(c.Get(col.path))
			row = append(row, v.Value)
		}
		_ = t.Append(row...)
	}
	return t
}

// chart fetches the chart endpoint and returns result[0].
func (y *Yahoo) chart(ctx context.Context, ticker string, q url.Values) (gjson.Result, error) {
	doc, err := y.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q)
	if err != nil {
		return gjson.Result{}, err
	}
	if e := doc.Get("chart.error"); e.Exists() && e.Type != gjson.Null {
		return gjson.Result{}, fmt.Errorf("API error: %s", e.Get("description").String())
	}
	r := doc.Get("chart.result.0")
	if !r.Exists() {
		return gjson.Result{}, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return r, nil
}

func (y *Yahoo) events(ctx context.Context, ticker, kind string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("range", "max")
	q.Set("interval", "1d")
	q.Set("events", kind)
	chart, err := y.chart(ctx, ticker, q)
	if err != nil {
		return gjson.Result{}, err
	}
	return chart.Get("events"), nil
}

func (y *Yahoo) quoteSummary(ctx context.Context, ticker string, modules ...string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("modules", strings.Join(modules, ","))
	doc, err := y.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), q)
	if err != nil {
		return gjson.Result{}, err
	}
	if e := doc.Get("quoteSummary.error"); e.Exists() && e.Type != gjson.Null {
		return gjson.Result{}, fmt.Errorf("API error: %s", e.Get("description").String())
	}
	r := doc.Get("quoteSummary.result.0")
	if !r.Exists() {
		return gjson.Result{}, fmt.Errorf("%w for %s", ErrNoData, ticker)
	}
	return r, nil
}

// getJSON issues a GET against the provider and returns the parsed body.
func (y *Yahoo) getJSON(ctx context.Context, path string, q url.Values) (gjson.Result, error) {
	u := y.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	log.Debugf("GET %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to fetch data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("failed to decode response from %s", path)
	}
	return gjson.ParseBytes(body), nil
}

// rangeParams maps a period onto query parameters. Year counts the provider
// has no range for are sent as an explicit start and end.
func (y *Yahoo) rangeParams(period string) url.Values {
	q := url.Values{}
	switch period {
	case "1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max":
		q.Set("range", period)
		return q
	}

	if n, err := strconv.Atoi(strings.TrimSuffix(period, "y")); err == nil && strings.HasSuffix(period, "y") && n > 0 {
		end := y.now()
		q.Set("period1", strconv.FormatInt(end.AddDate(-n, 0, 0).Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
		return q
	}

	q.Set("range", period)
	return q
}

// scalar unwraps {raw, fmt} objects and converts primitives.
func scalar(v gjson.Result) (result.Scalar, bool) {
	if v.IsObject() {
		if !v.Get("raw").Exists() {
			return result.Scalar{}, false
		}
		v = v.Get("raw")
	}
	switch v.Type {
	case gjson.Number:
		return result.Float(v.Float()), true
	case gjson.String:
		return result.String(v.String()), true
	case gjson.True, gjson.False:
		return result.Bool(v.Bool()), true
	default:
		return result.Scalar{}, false
	}
}

func num(values []gjson.Result, i int) any {
	if i >= len(values) || values[i].Type != gjson.Number {
		return nil
	}
	return values[i].Float()
}

func sortedEvents(m gjson.Result) []gjson.Result {
	var out []gjson.Result
	m.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Get("date").Int() < out[j].Get("date").Int()
	})
	return out
}

func eventDate(ev gjson.Result) string {
	return time.Unix(ev.Get("date").Int(), 0).UTC().Format("2006-01-02")
}
