// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output renders tables and mappings as text, json, yaml or raw
// entries after tailing, filtering, sorting and column transforms.
package output
