// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package result

import (
	"fmt"
	"math"
	"time"
)

// Kind tags the concrete shape of a Result.
type Kind string

const (
	KindTable   Kind = "table"
	KindMapping Kind = "mapping"
	KindScalar  Kind = "scalar"
)

// Result is the tagged union Table | Mapping | Scalar.
type Result interface {
	Kind() Kind
}

// Scalar wraps a single float64, string, bool or nil value.
type Scalar struct {
	Value any
}

func (Scalar) Kind() Kind { return KindScalar }

// Float, Int, String and Bool build Scalars. Int is stored as a float64 so a
// value survives the round trip through the cache unchanged.
func Float(f float64) Scalar { return Scalar{Value: f} }
func Int(i int64) Scalar     { return Scalar{Value: float64(i)} }
func String(s string) Scalar { return Scalar{Value: s} }
func Bool(b bool) Scalar     { return Scalar{Value: b} }
func NewScalar(v any) Scalar { return Scalar{Value: normalize(v)} }

// Truthy reports whether the scalar holds a non-zero value.
func (s Scalar) Truthy() bool {
	switch v := s.Value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

func (s Scalar) String() string {
	if s.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", s.Value)
}

// IsEmpty is the persistence rule: nil is empty, a table is empty without
// rows, a mapping is empty without entries and a scalar is empty when falsy.
func IsEmpty(r Result) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *Table:
		return v == nil || len(v.Rows) == 0
	case Mapping:
		return len(v) == 0
	case Scalar:
		return !v.Truthy()
	case *Scalar:
		return v == nil || !v.Truthy()
	default:
		return false
	}
}

// normalize coerces a cell or scalar to one of the four JSON-stable types.
func normalize(v any) any {
	switch v := v.(type) {
	case nil, string, bool, float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// finite replaces NaN and infinities with nil. JSON has no encoding for them.
func finite(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
