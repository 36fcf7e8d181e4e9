// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"fmt"
	"math"
)

// Table is a row/column dataset. Cells are float64, string, bool or nil.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (*Table) Kind() Kind { return KindTable }

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds a row. The number of cells must match the number of columns.
func (t *Table) Append(cells ...any) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = normalize(c)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of rows. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SetColumn sets every row's cell in the named column to value, adding the
// column when it doesn't exist yet. It is a no-op on a nil table.
func (t *Table) SetColumn(name string, value any) {
	if t == nil {
		return
	}
	value = normalize(value)
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], value)
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][idx] = value
	}
}

// Cell returns the value at row i in the named column, or nil.
func (t *Table) Cell(i int, column string) any {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= t.Len() {
		return nil
	}
	return t.Rows[i][idx]
}

// Floats returns the numeric values of a column. Non-numeric cells are
// skipped.
func (t *Table) Floats(column string) []float64 {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f, ok := row[idx].(float64); ok && !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	return out
}

// Strings returns the string form of every cell in a column.
func (t *Table) Strings(column string) []string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if row[idx] == nil {
			out = append(out, "")
			continue
		}
		out = append(out, fmt.Sprintf("%v", row[idx]))
	}
	return out
}

// Tail returns a copy holding only the last n rows. n <= 0 keeps all rows.
func (t *Table) Tail(n int) *Table {
	if t == nil {
		return nil
	}
	rows := t.Rows
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range rows {
		out.Rows = append(out.Rows, append([]any(nil), r...))
	}
	return out
}

// Records converts the table into one map per row keyed by column name.
func (t *Table) Records() []map[string]any {
	if t == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out = append(out, rec)
	}
	return out
}
