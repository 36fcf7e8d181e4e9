// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "# stockctl hq\n\n" +
	"## Short description\n\n" +
	"Query daily price history.\n\n" +
	"## Quick examples\n\n" +
	"```sh\n" +
	"# One year of daily bars\n" +
	"stockctl hq AAPL\n\n" +
	"# Weekly bars, newest last\n" +
	"stockctl hq   MSFT --interval 1wk\n" +
	"```\n"

func TestExtract(t *testing.T) {
	title, short := extractTitleAndShortDesc(sample)
	assert.Equal(t, "stockctl hq", title)
	assert.Equal(t, "Query daily price history.", short)

	exs := extractQuickExamples(sample)
	require.Len(t, exs, 2)
	assert.Equal(t, example{Desc: "One year of daily bars", Cmd: "stockctl hq AAPL"}, exs[0])
	assert.Equal(t, "Weekly bars, newest last", exs[1].Desc)
}

func TestBuildTLDR(t *testing.T) {
	got := buildTLDR("hq", "stockctl hq", "Query daily price history.", extractQuickExamples(sample))
	assert.Contains(t, got, "# stockctl-hq\n")
	assert.Contains(t, got, "> Query daily price history.\n")
	assert.Contains(t, got, "`stockctl hq MSFT --interval 1wk`")

	got = buildTLDR("iq", "", "", nil)
	assert.Contains(t, got, "`stockctl iq --help`")
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "docs", "commands")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hq.md"), []byte(sample), 0o644))

	n, err := generate(root, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(root, "docs", "man", "share", "man1", "stockctl-hq.1"))
	assert.FileExists(t, filepath.Join(root, "docs", "tldr", "stockctl-hq.md"))

	_, err = generate(t.TempDir(), true)
	assert.Error(t, err)
}
