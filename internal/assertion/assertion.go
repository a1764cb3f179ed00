// Package assertion decides whether a sampled telemetry value satisfies
// a comparison: an operator expression, a tolerance range, or a custom
// boolean expression over named bindings.
package assertion

import "fmt"

// Comparison is the condition a sampled value is held against.
type Comparison interface {
	// Describe returns the comparison as it appears in log messages.
	Describe() string
}

// Operator compares the value against a literal, e.g. ">= 5" or
// "== 'ARMED'". The text is everything after the item name in a compact
// check string.
type Operator struct {
	Text string
}

func (c Operator) Describe() string { return c.Text }

// Tolerance holds the value within expected ± tolerance, inclusive.
// Expected and Tol each accept a scalar or an N-length slice for vector
// items; scalars broadcast across all elements.
type Tolerance struct {
	Expected any
	Tol      any
}

func (c Tolerance) Describe() string {
	return fmt.Sprintf("within %v ± %v", c.Expected, c.Tol)
}

// Expression evaluates an arbitrary expression from the bounded grammar
// against a "value" binding plus any extra bindings.
type Expression struct {
	Text     string
	Bindings map[string]any
}

func (c Expression) Describe() string { return c.Text }

// Detail is the per-element outcome of a vector tolerance check. It is
// retained rather than collapsed so reports can show which indices
// failed.
type Detail struct {
	Index     int
	Low, High float64
	Value     float64
	Satisfied bool
}

// Result is the outcome of evaluating one comparison against one value.
type Result struct {
	Satisfied bool
	Details   []Detail // per element, tolerance comparisons only
}

// Bounds is one element's inclusive tolerance window.
type Bounds struct {
	Low, High float64
}
