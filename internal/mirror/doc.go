// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package mirror copies cache entries to and from an S3 bucket so several
// machines can share one day's downloads.
package mirror
