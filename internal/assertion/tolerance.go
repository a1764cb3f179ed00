package assertion

import (
	"fmt"
	"math"
)

// ArraySizeMismatchError reports an expected or tolerance slice whose
// length does not match the sampled vector.
type ArraySizeMismatchError struct {
	Op    string
	Param string
	Want  int
	Got   int
}

func (e *ArraySizeMismatchError) Error() string {
	return fmt.Sprintf("invalid array size for %s passed to %s(): want %d elements, got %d",
		e.Param, e.Op, e.Want, e.Got)
}

// NormalizeTolerance expands scalar-or-slice expected/tolerance inputs
// into two n-length slices. Scalars broadcast to every position and
// tolerances are taken in absolute value. op names the calling operation
// for error messages.
func NormalizeTolerance(n int, expected, tolerance any, op string) ([]float64, []float64, error) {
	exp, err := broadcast(n, expected, "expected_value", op)
	if err != nil {
		return nil, nil, err
	}
	tol, err := broadcast(n, tolerance, "tolerance", op)
	if err != nil {
		return nil, nil, err
	}
	for i := range tol {
		tol[i] = math.Abs(tol[i])
	}
	return exp, tol, nil
}

// BoundsFor derives per-element inclusive bounds from normalized
// expected and tolerance slices.
func BoundsFor(expected, tolerance []float64) []Bounds {
	bounds := make([]Bounds, len(expected))
	for i := range expected {
		bounds[i] = Bounds{Low: expected[i] - tolerance[i], High: expected[i] + tolerance[i]}
	}
	return bounds
}

func broadcast(n int, v any, param, op string) ([]float64, error) {
	if vs, ok := toFloatSlice(v); ok {
		if len(vs) != n {
			return nil, &ArraySizeMismatchError{Op: op, Param: param, Want: n, Got: len(vs)}
		}
		return vs, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("non-numeric %s passed to %s(): %v", param, op, v)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = f
	}
	return out, nil
}

func toFloatSlice(v any) ([]float64, bool) {
	switch vs := v.(type) {
	case []float64:
		out := make([]float64, len(vs))
		copy(out, vs)
		return out, true
	case []int:
		out := make([]float64, len(vs))
		for i, n := range vs {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(vs))
		for i, e := range vs {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
