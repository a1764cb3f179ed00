package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is one sample of a telemetry item: either a scalar primitive
// (number, string, bool) or an ordered vector of numbers. A Value is
// immutable once read from a provider.
type Value struct {
	scalar   any
	vector   []float64
	isVector bool
}

// Scalar wraps a primitive value. Integer types are widened to int64 and
// float32 to float64 so comparisons only ever see a small set of types.
func Scalar(v any) Value {
	switch n := v.(type) {
	case int:
		return Value{scalar: int64(n)}
	case int32:
		return Value{scalar: int64(n)}
	case float32:
		return Value{scalar: float64(n)}
	default:
		return Value{scalar: v}
	}
}

// Vector wraps an ordered sequence of numbers.
func Vector(vs []float64) Value {
	out := make([]float64, len(vs))
	copy(out, vs)
	return Value{vector: out, isVector: true}
}

func (v Value) IsVector() bool { return v.isVector }

// Len returns the element count: 1 for scalars.
func (v Value) Len() int {
	if v.isVector {
		return len(v.vector)
	}
	return 1
}

// Any returns the underlying scalar, or nil for vectors.
func (v Value) Any() any {
	if v.isVector {
		return nil
	}
	return v.scalar
}

// Vector returns the underlying elements. Scalar values return nil.
func (v Value) Vector() []float64 {
	if !v.isVector {
		return nil
	}
	return v.vector
}

// Float coerces a scalar value to float64. The second return is false
// for vectors and non-numeric scalars.
func (v Value) Float() (float64, bool) {
	if v.isVector {
		return 0, false
	}
	switch n := v.scalar.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	if v.isVector {
		parts := make([]string, len(v.vector))
		for i, f := range v.vector {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	switch n := v.scalar.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", v.scalar)
	}
}
