// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package etl runs the extract, transform and load pipeline that turns the
// complete data set for a ticker into a printed summary.
package etl
