package assertion

import (
	"github.com/halcyonix/telewait/internal/expr"
	"github.com/halcyonix/telewait/internal/telemetry"
)

// Evaluate checks a sampled value against a comparison. Evaluation
// errors (type mismatches, malformed expressions, size mismatches) are
// surfaced, never folded into a failed result.
func Evaluate(v telemetry.Value, c Comparison) (Result, error) {
	switch cmp := c.(type) {
	case Operator:
		return evalOperator(v, cmp)
	case Tolerance:
		return evalTolerance(v, cmp, "tolerance")
	case Expression:
		return evalExpression(v, cmp)
	default:
		return Result{}, &expr.EvaluationError{
			Expression: c.Describe(),
			Reason:     "unsupported comparison kind",
		}
	}
}

// EvaluateToleranceOp is Evaluate for a Tolerance comparison with the
// calling operation's name threaded into size-mismatch errors.
func EvaluateToleranceOp(v telemetry.Value, c Tolerance, op string) (Result, error) {
	return evalTolerance(v, c, op)
}

func evalOperator(v telemetry.Value, c Operator) (Result, error) {
	if v.IsVector() {
		return Result{}, &expr.EvaluationError{
			Expression: "value " + c.Text,
			Reason:     "operator comparisons apply to scalar items; use a tolerance comparison for arrays",
		}
	}
	ok, err := expr.EvalComparison(v.Any(), c.Text)
	if err != nil {
		return Result{}, err
	}
	return Result{Satisfied: ok}, nil
}

func evalTolerance(v telemetry.Value, c Tolerance, op string) (Result, error) {
	if v.IsVector() {
		elems := v.Vector()
		exp, tol, err := NormalizeTolerance(len(elems), c.Expected, c.Tol, op)
		if err != nil {
			return Result{}, err
		}
		bounds := BoundsFor(exp, tol)
		details := make([]Detail, len(elems))
		all := true
		for i, e := range elems {
			ok := e >= bounds[i].Low && e <= bounds[i].High
			details[i] = Detail{Index: i, Low: bounds[i].Low, High: bounds[i].High, Value: e, Satisfied: ok}
			if !ok {
				all = false
			}
		}
		return Result{Satisfied: all, Details: details}, nil
	}

	f, ok := v.Float()
	if !ok {
		return Result{}, &expr.EvaluationError{
			Expression: c.Describe(),
			Reason:     "tolerance comparisons require a numeric value",
		}
	}
	exp, tol, err := NormalizeTolerance(1, c.Expected, c.Tol, op)
	if err != nil {
		return Result{}, err
	}
	b := BoundsFor(exp, tol)[0]
	pass := f >= b.Low && f <= b.High
	return Result{
		Satisfied: pass,
		Details:   []Detail{{Index: 0, Low: b.Low, High: b.High, Value: f, Satisfied: pass}},
	}, nil
}

func evalExpression(v telemetry.Value, c Expression) (Result, error) {
	e, err := expr.Parse(c.Text)
	if err != nil {
		return Result{}, err
	}
	bindings := make(map[string]any, len(c.Bindings)+1)
	for k, b := range c.Bindings {
		bindings[k] = b
	}
	if _, bound := bindings["value"]; !bound {
		if v.IsVector() {
			bindings["value"] = v.Vector()
		} else {
			bindings["value"] = v.Any()
		}
	}
	ok, err := e.Eval(bindings)
	if err != nil {
		return Result{}, err
	}
	return Result{Satisfied: ok}, nil
}
