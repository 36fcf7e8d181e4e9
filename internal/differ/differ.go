// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	diff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// ErrEntryCount is returned when Diff is not given exactly two entries.
var ErrEntryCount = errors.New("diff needs exactly two entries")

// Diff writes a structural diff of the results held by two encoded cache
// entries. Only the result documents are compared; envelope fields such as
// the key and creation time always differ. It reports whether the results
// differ.
func Diff(_ context.Context, w io.Writer, entries [][]byte, color bool) (bool, error) {
	if len(entries) != 2 {
		return false, fmt.Errorf("%w, got %d", ErrEntryCount, len(entries))
	}

	left, err := resultDoc(entries[0])
	if err != nil {
		return false, fmt.Errorf("left entry: %w", err)
	}
	right, err := resultDoc(entries[1])
	if err != nil {
		return false, fmt.Errorf("right entry: %w", err)
	}

	d, err := diff.New().Compare(left, right)
	if err != nil {
		return false, fmt.Errorf("failed to compare entries: %w", err)
	}

	if !d.Modified() {
		log.Debug("entries are identical")
		_, err := fmt.Fprintln(w, "No differences.")
		return false, err
	}

	var leftObj map[string]interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return true, fmt.Errorf("failed to decode left entry: %w", err)
	}

	f := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	out, err := f.Format(d)
	if err != nil {
		return true, fmt.Errorf("failed to format diff: %w", err)
	}

	_, err = io.WriteString(w, out)
	return true, err
}

func resultDoc(entry []byte) ([]byte, error) {
	if !gjson.ValidBytes(entry) {
		return nil, errors.New("not valid json")
	}
	r := gjson.GetBytes(entry, "result")
	if !r.IsObject() {
		return nil, errors.New("entry has no result")
	}
	return []byte(r.Raw), nil
}
