// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"cmp"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/stockctl/internal/attrs"
)

// filterRegex splits an expression into column, operator and target. The
// operator is one of = ^ ~ < > <= >= @ or /, optionally prefixed with '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?(?:>=|<=|[=^~<>@/]))(.*)$`)

// Filter is one parsed --filter expression. Key names a column by its output
// key.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses spec into filters. Expressions without a supported
// operator are logged and dropped. STOCKCTL_FILTER_DELIM overrides the ","
// separator.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d, ok := os.LookupEnv("STOCKCTL_FILTER_DELIM"); ok {
		delim = d
	}

	var filters []Filter
	for _, expr := range strings.Split(spec, delim) {
		m := filterRegex.FindStringSubmatch(expr)
		if m == nil {
			log.Error("invalid filter: " + expr)
			continue
		}
		op, negate := strings.CutPrefix(m[2], "!")
		filters = append(filters, Filter{
			Key:     m[1],
			Negate:  negate,
			Operand: op,
			Target:  m[3],
		})
	}
	return filters
}

// FilterDataset returns the rows of candidates, a JSON array of records, that
// pass every filter in spec. Each returned row holds the attrs keyed by their
// output key. Transforms are left for the renderer.
func FilterDataset(candidates gjson.Result, al attrs.AttrList, spec string) []map[string]interface{} {
	filters := resolve(BuildFilters(spec), al)

	var rows []map[string]interface{}
	candidates.ForEach(func(_, record gjson.Result) bool {
		for _, rf := range filters {
			if !rf.Match(lookup(record, rf.column)) {
				return true
			}
		}

		row := make(map[string]interface{}, len(al))
		for _, a := range al {
			if a.Key != "*" {
				row[a.OutputKey] = lookup(record, a.Key).Value()
			}
		}
		rows = append(rows, row)
		return true
	})
	return rows
}

// resolvedFilter pairs a filter with the source column it applies to.
type resolvedFilter struct {
	Filter
	column string
}

// resolve maps each filter to the source column behind its output key.
// Filters on unknown columns are reported and ignored.
func resolve(filters []Filter, al attrs.AttrList) []resolvedFilter {
	out := make([]resolvedFilter, 0, len(filters))
	for _, f := range filters {
		column := ""
		for _, a := range al {
			if a.OutputKey == f.Key && a.Key != "*" {
				column = a.Key
				break
			}
		}
		if column == "" {
			msg := fmt.Sprintf("filter key not found: %s", f.Key)
			log.Error(msg)
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			continue
		}
		out = append(out, resolvedFilter{column: column, Filter: f})
	}
	return out
}

// Match reports whether v passes the filter. Null never matches. Numbers
// compare numerically, strings and booleans as text, and arrays or objects
// only support the @ membership operator.
func (f Filter) Match(v gjson.Result) bool {
	var matched, valid bool
	switch v.Type {
	case gjson.Null:
		return false
	case gjson.Number:
		matched, valid = f.number(v.Num)
	case gjson.String, gjson.True, gjson.False:
		matched, valid = f.text(v.String())
	default:
		if f.Operand != "@" {
			return true
		}
		matched, valid = f.member(v)
	}
	return valid && matched != f.Negate
}

func (f Filter) number(value float64) (bool, bool) {
	target, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + f.Target)
		return false, false
	}
	return ordered(cmp.Compare(value, target), f.Operand)
}

func (f Filter) text(value string) (bool, bool) {
	switch f.Operand {
	case "~":
		return strings.EqualFold(value, f.Target), true
	case "^":
		return strings.HasPrefix(value, f.Target), true
	case "@":
		return strings.Contains(value, f.Target), true
	case "/":
		re, err := regexp.Compile(f.Target)
		if err != nil {
			log.Error("invalid regex: " + f.Target)
			return false, false
		}
		return re.MatchString(value), true
	}
	return ordered(strings.Compare(value, f.Target), f.Operand)
}

// member checks an array for an element or an object for a key.
func (f Filter) member(v gjson.Result) (bool, bool) {
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			if item.String() == f.Target {
				return true, true
			}
		}
		return false, true
	case v.IsObject():
		return v.Get(gjson.Escape(f.Target)).Exists(), true
	}
	log.Error(fmt.Sprintf("unsupported type for contains filtering: %s", v.Type))
	return false, false
}

// ordered applies a comparison operator to the result of a three-way
// compare.
func ordered(c int, op string) (bool, bool) {
	switch op {
	case "=":
		return c == 0, true
	case ">":
		return c > 0, true
	case "<":
		return c < 0, true
	case ">=":
		return c >= 0, true
	case "<=":
		return c <= 0, true
	}
	log.Error("unsupported filtering operand: " + op)
	return false, false
}

// lookup reads a column from a record. Column names are literal, so gjson path
// characters in them are escaped.
func lookup(record gjson.Result, column string) gjson.Result {
	return record.Get(gjson.Escape(column))
}
