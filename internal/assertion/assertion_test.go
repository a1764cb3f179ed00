package assertion

import (
	"errors"
	"math"
	"testing"

	"github.com/halcyonix/telewait/internal/expr"
	"github.com/halcyonix/telewait/internal/telemetry"
)

func TestNormalizeToleranceBroadcast(t *testing.T) {
	exp, tol, err := NormalizeTolerance(3, 100.0, -5.0, "check_tolerance")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if exp[i] != 100 {
			t.Fatalf("expected[%d] = %g, want 100", i, exp[i])
		}
		if tol[i] != 5 {
			t.Fatalf("tolerance[%d] = %g, want 5 (absolute value)", i, tol[i])
		}
	}
}

func TestNormalizeToleranceSlices(t *testing.T) {
	exp, tol, err := NormalizeTolerance(2, []float64{1, 2}, []int{1, 1}, "wait_tolerance")
	if err != nil {
		t.Fatal(err)
	}
	if exp[1] != 2 || tol[1] != 1 {
		t.Fatalf("got exp=%v tol=%v", exp, tol)
	}
}

func TestNormalizeToleranceSizeMismatch(t *testing.T) {
	_, _, err := NormalizeTolerance(3, []float64{1, 2}, 0.1, "check_tolerance")
	var mismatch *ArraySizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ArraySizeMismatchError, got %v", err)
	}
	if mismatch.Op != "check_tolerance" || mismatch.Want != 3 || mismatch.Got != 2 {
		t.Fatalf("bad error fields: %+v", mismatch)
	}
}

func TestToleranceBoundsInclusive(t *testing.T) {
	cmp := Tolerance{Expected: 100.0, Tol: 5.0}
	cases := []struct {
		value float64
		want  bool
	}{
		{95, true},   // lower boundary inclusive
		{105, true},  // upper boundary inclusive
		{100, true},
		{94.999, false},
		{105.001, false},
	}
	for _, c := range cases {
		res, err := Evaluate(telemetry.Scalar(c.value), cmp)
		if err != nil {
			t.Fatal(err)
		}
		if res.Satisfied != c.want {
			t.Errorf("value %g: got %v, want %v", c.value, res.Satisfied, c.want)
		}
	}
}

func TestVectorToleranceANDLaw(t *testing.T) {
	cmp := Tolerance{Expected: []float64{1, 1, 1}, Tol: 0.1}
	res, err := Evaluate(telemetry.Vector([]float64{1.05, 0.8, 1.0}), cmp)
	if err != nil {
		t.Fatal(err)
	}
	if res.Satisfied {
		t.Fatal("expected aggregate failure")
	}
	if len(res.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(res.Details))
	}
	wantPass := []bool{true, false, true}
	for i, d := range res.Details {
		if d.Satisfied != wantPass[i] {
			t.Errorf("element %d: got %v, want %v", i, d.Satisfied, wantPass[i])
		}
	}
	if math.Abs(res.Details[1].Low-0.9) > 1e-9 || math.Abs(res.Details[1].High-1.1) > 1e-9 {
		t.Fatalf("bad bounds: %+v", res.Details[1])
	}

	res, err = Evaluate(telemetry.Vector([]float64{1.05, 0.95, 1.0}), cmp)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Satisfied {
		t.Fatal("expected aggregate pass when every element passes")
	}
}

func TestVectorToleranceSizeMismatch(t *testing.T) {
	cmp := Tolerance{Expected: []float64{1, 2}, Tol: 0.1}
	_, err := EvaluateToleranceOp(telemetry.Vector([]float64{1, 2, 3}), cmp, "wait_check_tolerance")
	var mismatch *ArraySizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ArraySizeMismatchError, got %v", err)
	}
	if mismatch.Op != "wait_check_tolerance" {
		t.Fatalf("bad op: %s", mismatch.Op)
	}
}

func TestOperatorComparison(t *testing.T) {
	res, err := Evaluate(telemetry.Scalar(5.0), Operator{Text: ">= 5"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Satisfied {
		t.Fatal("expected pass")
	}

	res, err = Evaluate(telemetry.Scalar("ARMED"), Operator{Text: "== 'ARMED'"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Satisfied {
		t.Fatal("expected string equality pass")
	}
}

func TestOperatorTypeMismatch(t *testing.T) {
	_, err := Evaluate(telemetry.Scalar("ARMED"), Operator{Text: "> 5"})
	var evalErr *expr.EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
}

func TestOperatorOnVectorIsError(t *testing.T) {
	_, err := Evaluate(telemetry.Vector([]float64{1, 2}), Operator{Text: "> 5"})
	if err == nil {
		t.Fatal("expected error for operator comparison on a vector")
	}
}

func TestExpressionComparison(t *testing.T) {
	cmp := Expression{
		Text:     "value > 5 and margin < 1",
		Bindings: map[string]any{"margin": 0.5},
	}
	res, err := Evaluate(telemetry.Scalar(7.0), cmp)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Satisfied {
		t.Fatal("expected pass")
	}

	res, err = Evaluate(telemetry.Scalar(3.0), cmp)
	if err != nil {
		t.Fatal(err)
	}
	if res.Satisfied {
		t.Fatal("expected fail")
	}
}

func TestScalarToleranceRequiresNumeric(t *testing.T) {
	_, err := Evaluate(telemetry.Scalar("oops"), Tolerance{Expected: 1.0, Tol: 0.1})
	if err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}
