// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package result defines the values produced by market data operations and
// the blob format used to persist them in the disk cache. A Result is one of
// a Table, a Mapping of named Results, or a Scalar.
package result
