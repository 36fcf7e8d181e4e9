// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/staranto/stockctl/internal/attrs"
)

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		delimiter string
		want      []Filter
	}{
		{
			name: "empty spec",
			spec: "",
		},
		{
			name: "exact match",
			spec: "Ticker=AAPL",
			want: []Filter{{Key: "Ticker", Operand: "=", Target: "AAPL"}},
		},
		{
			name: "negated exact match",
			spec: "Ticker!=AAPL",
			want: []Filter{{Key: "Ticker", Operand: "=", Target: "AAPL", Negate: true}},
		},
		{
			name: "greater or equal",
			spec: "Date>=2024-01-03",
			want: []Filter{{Key: "Date", Operand: ">=", Target: "2024-01-03"}},
		},
		{
			name: "less or equal",
			spec: "Close<=180.5",
			want: []Filter{{Key: "Close", Operand: "<=", Target: "180.5"}},
		},
		{
			name: "multiple",
			spec: "Close>180,Date^2024-01",
			want: []Filter{
				{Key: "Close", Operand: ">", Target: "180"},
				{Key: "Date", Operand: "^", Target: "2024-01"},
			},
		},
		{
			name:      "custom delimiter",
			spec:      "Close>180;Ticker~aapl",
			delimiter: ";",
			want: []Filter{
				{Key: "Close", Operand: ">", Target: "180"},
				{Key: "Ticker", Operand: "~", Target: "aapl"},
			},
		},
		{
			name: "invalid is skipped",
			spec: "nooperator,Close>1",
			want: []Filter{{Key: "Close", Operand: ">", Target: "1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.delimiter != "" {
				t.Setenv("STOCKCTL_FILTER_DELIM", tt.delimiter)
			}
			assert.Equal(t, tt.want, BuildFilters(tt.spec))
		})
	}
}

const dataset = `[
	{"Date": "2024-01-02", "Close": 185.64, "Volume": 82488700, "Ticker": "AAPL", "Split": false},
	{"Date": "2024-01-03", "Close": 184.25, "Volume": 58414500, "Ticker": "AAPL", "Split": false},
	{"Date": "2024-01-04", "Close": 181.91, "Volume": 71983600, "Ticker": "AAPL", "Split": true},
	{"Date": "2024-01-05", "Close": null, "Volume": 0, "Ticker": "AAPL", "Split": false}
]`

func dates(rows []map[string]interface{}) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["Date"].(string))
	}
	return out
}

func TestFilterDataset(t *testing.T) {
	cols := attrs.Defaults([]string{"Date", "Close", "Volume", "Ticker", "Split"})
	candidates := gjson.Parse(dataset)

	tests := []struct {
		spec string
		want []string
	}{
		{"", []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}},
		{"Close>182", []string{"2024-01-02", "2024-01-03"}},
		{"Close<=184.25", []string{"2024-01-03", "2024-01-04"}},
		{"Close!=184.25", []string{"2024-01-02", "2024-01-04"}},
		{"Date>=2024-01-03", []string{"2024-01-03", "2024-01-04", "2024-01-05"}},
		{"Date^2024-01-0,Volume>60000000", []string{"2024-01-02", "2024-01-04"}},
		{"Date/0[24]$", []string{"2024-01-02", "2024-01-04"}},
		{"Split=true", []string{"2024-01-04"}},
		{"Ticker~aapl,Volume<1", []string{"2024-01-05"}},
		{"Missing=1", []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got := FilterDataset(candidates, cols, tt.spec)
			assert.Equal(t, tt.want, dates(got))
		})
	}
}

func TestFilterDatasetOutputKeys(t *testing.T) {
	cols := attrs.AttrList{
		{Key: "*", TransformSpec: "u"},
		{Key: "Date", Include: true, OutputKey: "day"},
		{Key: "Close", Include: false, OutputKey: "Close"},
	}

	got := FilterDataset(gjson.Parse(dataset), cols, "Close>185")
	assert.Equal(t, []map[string]interface{}{{"day": "2024-01-02", "Close": 185.64}}, got)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		value  string
		want   bool
	}{
		{"array member", Filter{Operand: "@", Target: "b"}, `["a","b"]`, true},
		{"array non member", Filter{Operand: "@", Target: "c"}, `["a","b"]`, false},
		{"negated array member", Filter{Operand: "@", Target: "b", Negate: true}, `["a","b"]`, false},
		{"object key", Filter{Operand: "@", Target: "b"}, `{"b":1}`, true},
		{"object ignores other ops", Filter{Operand: "=", Target: "x"}, `{"b":1}`, true},
		{"substring", Filter{Operand: "@", Target: "pp"}, `"Apple"`, true},
		{"null", Filter{Operand: "=", Target: "x", Negate: true}, `null`, false},
		{"bad numeric target", Filter{Operand: ">", Target: "abc", Negate: true}, `1`, false},
		{"bad regex", Filter{Operand: "/", Target: "(", Negate: true}, `"a"`, false},
		{"unknown operand", Filter{Operand: "?", Target: "a"}, `"a"`, false},
		{"string order", Filter{Operand: "<", Target: "b"}, `"a"`, true},
		{"numeric equality", Filter{Operand: "=", Target: " 2.50 "}, `2.5`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(gjson.Parse(tt.value)))
		})
	}
}
