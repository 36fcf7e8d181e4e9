// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package collector fetches stock data through a market provider, memoizing
// downloads in the daily disk cache.
package collector
