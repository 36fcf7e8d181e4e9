// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/stockctl/internal/attrs"
	"github.com/staranto/stockctl/internal/config"
	"github.com/staranto/stockctl/internal/filters"
	"github.com/staranto/stockctl/internal/result"
)

// Options control how a dataset is rendered.
type Options struct {
	// Format is one of text, json, yaml or raw.
	Format  string
	Columns string
	Filter  string
	Sort    string
	Tail    int
	Titles  bool
	Color   bool
}

// OptionsFromCommand reads the common output flags from cmd. Flags a command
// doesn't define come back as zero values.
func OptionsFromCommand(cmd *cli.Command) Options {
	return Options{
		Format:  cmd.String("output"),
		Columns: cmd.String("columns"),
		Filter:  cmd.String("filter"),
		Sort:    cmd.String("sort"),
		Tail:    cmd.Int("tail"),
		Titles:  cmd.Bool("titles"),
		Color:   cmd.Bool("color"),
	}
}

// ColorDefault reports whether stdout is a terminal and NO_COLOR is unset.
func ColorDefault() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SliceDiceSpit tails, filters, sorts, transforms and renders tbl to w.
func SliceDiceSpit(w io.Writer, tbl *result.Table, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	// If raw, just dump it and go home.
	if opts.Format == "raw" {
		return writeJSON(w, tbl, true)
	}

	if tbl == nil {
		return nil
	}
	tbl = tbl.Tail(opts.Tail)

	al, err := attrs.Defaults(tbl.Columns).Select(opts.Columns)
	if err != nil {
		return err
	}
	_ = al.SetGlobalTransformSpec()
	log.Debugf("columns: %v", al.String())

	// Filtering works over JSON so the same expressions apply to any column.
	records, err := json.Marshal(tbl.Records())
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	dataset := filters.FilterDataset(gjson.ParseBytes(records), al, opts.Filter)

	// Sort on the untransformed values so numbers order numerically.
	SortDataset(dataset, opts.Sort)

	for _, row := range dataset {
		for i := range al {
			if al[i].TransformSpec != "" && al[i].Key != "*" {
				row[al[i].OutputKey] = al[i].Transform(row[al[i].OutputKey])
			}
		}
	}

	switch opts.Format {
	case "json":
		return writeJSON(w, dataset, false)
	case "yaml":
		return writeYAML(w, dataset)
	default:
		TableWriter(w, dataset, al, opts)
		return nil
	}
}

// SpitMapping renders m as key/value rows. Nested values are flattened into
// dotted keys for text output and kept nested for json and yaml.
func SpitMapping(w io.Writer, m result.Mapping, opts Options) error {
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case "raw", "json":
		return writeJSON(w, Plain(m), opts.Format == "raw")
	case "yaml":
		return writeYAML(w, Plain(m))
	}

	var rows []map[string]interface{}
	flatten("", m, func(k string, v interface{}) {
		rows = append(rows, map[string]interface{}{"key": k, "value": v})
	})
	if opts.Filter != "" {
		data, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
		rows = filters.FilterDataset(gjson.ParseBytes(data), kvAttrs, opts.Filter)
	}
	SortDataset(rows, opts.Sort)

	TableWriter(w, rows, kvAttrs, opts)
	return nil
}

var kvAttrs = attrs.AttrList{
	{Key: "key", Include: true, OutputKey: "key"},
	{Key: "value", Include: true, OutputKey: "value"},
}

func flatten(prefix string, r result.Result, emit func(string, interface{})) {
	switch v := r.(type) {
	case result.Mapping:
		for _, k := range v.Keys() {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, v[k], emit)
		}
	case *result.Table:
		emit(prefix, fmt.Sprintf("[%d rows]", v.Len()))
	case result.Scalar:
		emit(prefix, v.Value)
	default:
		emit(prefix, nil)
	}
}

// Plain converts r into plain Go values suitable for json and yaml encoders.
func Plain(r result.Result) interface{} {
	switch v := r.(type) {
	case result.Mapping:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			out[k] = Plain(child)
		}
		return out
	case *result.Table:
		return v.Records()
	case result.Scalar:
		return v.Value
	default:
		return nil
	}
}

func writeJSON(w io.Writer, v interface{}, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(w io.Writer, resultSet []map[string]interface{}, al attrs.AttrList, opts Options) {
	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 2)

	var rows [][]string
	for _, res := range resultSet {
		row := make([]string, 0, len(al))
		for _, attr := range al {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(res[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if opts.Titles {
		var headers []string
		for _, attr := range al {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		if value == "" {
			return emptyValue[0]
		}
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		if v := reflect.ValueOf(value); (v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.Len() == 0 {
			return emptyValue[0]
		}
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
