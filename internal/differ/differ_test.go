// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package differ

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/stockctl/internal/result"
)

func encode(t *testing.T, key string, day time.Time, closes ...float64) []byte {
	t.Helper()
	tbl := result.NewTable("Date", "Close")
	for i, c := range closes {
		require.NoError(t, tbl.Append(day.AddDate(0, 0, -i).Format("2006-01-02"), c))
	}
	data, err := result.Encode(key, day, tbl)
	require.NoError(t, err)
	return data
}

func TestDiffIdentical(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := encode(t, "AAPL_1y_2024-01-02", day, 185.64)
	b := encode(t, "AAPL_1y_2024-01-03", day.Add(time.Hour), 185.64)

	var buf bytes.Buffer
	changed, err := Diff(context.Background(), &buf, [][]byte{a, b}, false)
	require.NoError(t, err)
	assert.False(t, changed, "envelope fields are ignored")
	assert.Equal(t, "No differences.\n", buf.String())
}

func TestDiffChanged(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := encode(t, "AAPL_1y_2024-01-02", day, 185.64)
	b := encode(t, "AAPL_1y_2024-01-02", day, 184.25)

	var buf bytes.Buffer
	changed, err := Diff(context.Background(), &buf, [][]byte{a, b}, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, buf.String(), "185.64")
	assert.Contains(t, buf.String(), "184.25")
	assert.Contains(t, buf.String(), "-")
	assert.Contains(t, buf.String(), "+")
}

func TestDiffErrors(t *testing.T) {
	_, err := Diff(context.Background(), &bytes.Buffer{}, [][]byte{[]byte(`{}`)}, false)
	assert.True(t, errors.Is(err, ErrEntryCount))

	_, err = Diff(context.Background(), &bytes.Buffer{}, [][]byte{[]byte(`{`), []byte(`{}`)}, false)
	assert.ErrorContains(t, err, "left entry")

	_, err = Diff(context.Background(), &bytes.Buffer{}, [][]byte{[]byte(`{"result":{}}`), []byte(`{"key":"x"}`)}, false)
	assert.ErrorContains(t, err, "right entry: entry has no result")
}
