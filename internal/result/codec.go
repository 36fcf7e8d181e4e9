// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Extension is the file extension of persisted entries.
const Extension = ".json"

const formatVersion = 1

// Common codec errors.
var (
	ErrMalformedEntry = errors.New("malformed cache entry")
	ErrUnknownKind    = errors.New("unknown result kind")
)

// Entry is a decoded cache blob.
type Entry struct {
	Key       string
	CreatedAt time.Time
	Result    Result
}

type envelope struct {
	Version   int             `json:"version"`
	Key       string          `json:"key"`
	CreatedAt time.Time       `json:"created_at"`
	Result    json.RawMessage `json:"result"`
}

// Encode serializes r into the on-disk entry format.
func Encode(key string, createdAt time.Time, r Result) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot encode nil result for %s", key)
	}
	node, err := toNode(r)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return json.MarshalIndent(envelope{
		Version:   formatVersion,
		Key:       key,
		CreatedAt: createdAt.UTC(),
		Result:    raw,
	}, "", "  ")
}

// Decode parses an entry written by Encode. Anything that isn't a complete,
// well-formed entry yields an error wrapping ErrMalformedEntry or
// ErrUnknownKind.
func Decode(data []byte) (*Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedEntry)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedEntry)
	}

	if v := doc.Get("version"); v.Exists() && v.Int() > formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedEntry, v.Int())
	}

	key := doc.Get("key").String()
	if key == "" {
		return nil, fmt.Errorf("%w: missing key", ErrMalformedEntry)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, doc.Get("created_at").String())
	if err != nil {
		return nil, fmt.Errorf("%w: bad created_at: %v", ErrMalformedEntry, err)
	}

	node := doc.Get("result")
	if !node.IsObject() {
		return nil, fmt.Errorf("%w: missing result", ErrMalformedEntry)
	}
	r, err := fromNode(node)
	if err != nil {
		return nil, err
	}

	return &Entry{Key: key, CreatedAt: createdAt, Result: r}, nil
}

func toNode(r Result) (any, error) {
	switch v := r.(type) {
	case nil:
		return nil, nil
	case *Table:
		if v == nil {
			return nil, nil
		}
		cols := v.Columns
		if cols == nil {
			cols = []string{}
		}
		rows := make([][]any, 0, len(v.Rows))
		for _, row := range v.Rows {
			cells := make([]any, len(row))
			for i, c := range row {
				cells[i] = finite(normalize(c))
			}
			rows = append(rows, cells)
		}
		return map[string]any{"kind": KindTable, "columns": cols, "rows": rows}, nil
	case Mapping:
		entries := make(map[string]any, len(v))
		for k, child := range v {
			n, err := toNode(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			entries[k] = n
		}
		return map[string]any{"kind": KindMapping, "entries": entries}, nil
	case Scalar:
		return map[string]any{"kind": KindScalar, "value": finite(normalize(v.Value))}, nil
	case *Scalar:
		if v == nil {
			return nil, nil
		}
		return toNode(*v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, r)
	}
}

func fromNode(n gjson.Result) (Result, error) {
	if n.Type == gjson.Null {
		return nil, nil
	}
	if !n.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrMalformedEntry, n.Type)
	}

	switch kind := Kind(n.Get("kind").String()); kind {
	case KindTable:
		return tableFromNode(n)
	case KindMapping:
		entries := n.Get("entries")
		if !entries.IsObject() {
			return nil, fmt.Errorf("%w: mapping without entries", ErrMalformedEntry)
		}
		m := Mapping{}
		var err error
		entries.ForEach(func(k, v gjson.Result) bool {
			var child Result
			if child, err = fromNode(v); err != nil {
				return false
			}
			m[k.String()] = child
			return true
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindScalar:
		v := n.Get("value")
		if !v.Exists() {
			return nil, fmt.Errorf("%w: scalar without value", ErrMalformedEntry)
		}
		cell, err := cellValue(v)
		if err != nil {
			return nil, err
		}
		return Scalar{Value: cell}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func tableFromNode(n gjson.Result) (*Table, error) {
	cols, rows := n.Get("columns"), n.Get("rows")
	if !cols.IsArray() || !rows.IsArray() {
		return nil, fmt.Errorf("%w: table without columns or rows", ErrMalformedEntry)
	}

	t := &Table{}
	for _, c := range cols.Array() {
		if c.Type != gjson.String {
			return nil, fmt.Errorf("%w: column name %s", ErrMalformedEntry, c.Raw)
		}
		t.Columns = append(t.Columns, c.String())
	}

	for i, row := range rows.Array() {
		if !row.IsArray() {
			return nil, fmt.Errorf("%w: row %d is not an array", ErrMalformedEntry, i)
		}
		cells := row.Array()
		if len(cells) != len(t.Columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformedEntry, i, len(cells), len(t.Columns))
		}
		out := make([]any, len(cells))
		for j, c := range cells {
			v, err := cellValue(c)
			if err != nil {
				return nil, err
			}
			out[j] = v
		}
		t.Rows = append(t.Rows, out)
	}
	return t, nil
}

func cellValue(c gjson.Result) (any, error) {
	switch c.Type {
	case gjson.Null:
		return nil, nil
	case gjson.False:
		return false, nil
	case gjson.True:
		return true, nil
	case gjson.Number:
		return c.Float(), nil
	case gjson.String:
		return c.String(), nil
	default:
		return nil, fmt.Errorf("%w: nested value %s", ErrMalformedEntry, c.Raw)
	}
}
