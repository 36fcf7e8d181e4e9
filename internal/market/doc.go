// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package market talks to the upstream market data provider and converts its
// responses into result values.
package market
