// Package script exposes the wait/check operation surface used by
// test-automation scripts: immediate checks, polled waits, and the
// composite wait-then-check forms, over scalar and vector telemetry
// items.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/halcyonix/telewait/internal/assertion"
	"github.com/halcyonix/telewait/internal/poll"
	"github.com/halcyonix/telewait/internal/storage"
	"github.com/halcyonix/telewait/internal/telemetry"
)

// Runner executes check and wait operations against a telemetry
// provider. A Runner is safe for use by one script at a time; separate
// scripts should hold separate Runners.
type Runner struct {
	provider    telemetry.Provider
	delayer     poll.Delayer
	logger      *slog.Logger
	recorder    storage.Store
	pollingRate time.Duration
}

func NewRunner(provider telemetry.Provider, delayer poll.Delayer, logger *slog.Logger) *Runner {
	return &Runner{
		provider:    provider,
		delayer:     delayer,
		logger:      logger,
		pollingRate: DefaultPollingRate,
	}
}

// SetRecorder enables persistence of reported outcomes.
func (r *Runner) SetRecorder(store storage.Store) { r.recorder = store }

// SetPollingRate overrides the default interval used when calls omit
// their polling-rate argument.
func (r *Runner) SetPollingRate(d time.Duration) {
	if d > 0 {
		r.pollingRate = d
	}
}

// Check asserts a condition on the converted value of an item and
// raises a CheckFailure when it does not hold.
//
//	Check(ctx, "TGT PKT ITEM > 1")
//	Check(ctx, target, packet, item, comparison)
func (r *Runner) Check(ctx context.Context, args ...any) error {
	return r.check(ctx, telemetry.Converted, "check", args)
}

// CheckRaw is Check against the raw value.
func (r *Runner) CheckRaw(ctx context.Context, args ...any) error {
	return r.check(ctx, telemetry.Raw, "check_raw", args)
}

// CheckFormatted is Check against the formatted value.
func (r *Runner) CheckFormatted(ctx context.Context, args ...any) error {
	return r.check(ctx, telemetry.Formatted, "check_formatted", args)
}

// CheckWithUnits is Check against the formatted-with-units value.
func (r *Runner) CheckWithUnits(ctx context.Context, args ...any) error {
	return r.check(ctx, telemetry.FormattedWithUnits, "check_with_units", args)
}

func (r *Runner) check(ctx context.Context, repr telemetry.Representation, op string, args []any) error {
	ref, err := resolveCheckArgs(op, args)
	if err != nil {
		return err
	}
	value, err := r.provider.Sample(ctx, ref.target, ref.packet, ref.item, repr)
	if err != nil {
		return err
	}
	itemText := upcase(ref.target, ref.packet, ref.item)
	if ref.comparison == "" {
		// Bare item: print the value, nothing to assert.
		msg := fmt.Sprintf("CHECK: %s == %s", itemText, value)
		r.record(ctx, op, itemText, true, msg, 0)
		r.logger.Info(msg, "operation", op)
		return nil
	}
	res, err := assertion.Evaluate(value, assertion.Operator{Text: ref.comparison})
	if err != nil {
		return err
	}
	msg := comparisonMessage(SemanticsCheck, ref, value, res.Satisfied, 0, false)
	return r.report(ctx, SemanticsCheck, op, itemText, msg, res.Satisfied, 0)
}

// CheckTolerance asserts that the converted value of an item lies
// within expected ± tolerance, element-wise for vector items.
//
//	CheckTolerance(ctx, "TGT PKT ITEM", expected, tolerance)
//	CheckTolerance(ctx, target, packet, item, expected, tolerance)
func (r *Runner) CheckTolerance(ctx context.Context, args ...any) error {
	return r.checkTolerance(ctx, telemetry.Converted, "check_tolerance", args)
}

// CheckToleranceRaw is CheckTolerance against the raw value.
func (r *Runner) CheckToleranceRaw(ctx context.Context, args ...any) error {
	return r.checkTolerance(ctx, telemetry.Raw, "check_tolerance_raw", args)
}

func (r *Runner) checkTolerance(ctx context.Context, repr telemetry.Representation, op string, args []any) error {
	ref, err := resolveCheckToleranceArgs(op, args)
	if err != nil {
		return err
	}
	value, err := r.provider.Sample(ctx, ref.target, ref.packet, ref.item, repr)
	if err != nil {
		return err
	}
	res, err := assertion.EvaluateToleranceOp(value, assertion.Tolerance{Expected: ref.expected, Tol: ref.tolerance}, op)
	if err != nil {
		return err
	}
	msg := toleranceMessage(SemanticsCheck, ref, res.Details, value.IsVector(), 0, false)
	itemText := upcase(ref.target, ref.packet, ref.item)
	return r.report(ctx, SemanticsCheck, op, itemText, msg, res.Satisfied, 0)
}

// CheckExpression evaluates a custom expression once and raises a
// CheckFailure when it is false.
func (r *Runner) CheckExpression(ctx context.Context, text string, bindings map[string]any) error {
	out, err := r.pollExpression(ctx, text, bindings, 0, r.pollingRate)
	if err != nil {
		return err
	}
	msg := expressionMessage(SemanticsCheck, text, out.Satisfied, 0, false)
	return r.report(ctx, SemanticsCheck, "check_expression", text, msg, out.Satisfied, 0)
}

// Wait polls a condition on the converted value of an item. On timeout
// the script continues: failure only logs a warning.
//
//	Wait(ctx)                                  indefinite, ends on skip-wait
//	Wait(ctx, seconds)                         fixed-duration sleep
//	Wait(ctx, "TGT PKT ITEM > 1", timeout [, pollingRate])
//	Wait(ctx, target, packet, item, comparison, timeout [, pollingRate])
func (r *Runner) Wait(ctx context.Context, args ...any) (time.Duration, error) {
	return r.wait(ctx, telemetry.Converted, "wait", args)
}

// WaitRaw is Wait against the raw value.
func (r *Runner) WaitRaw(ctx context.Context, args ...any) (time.Duration, error) {
	return r.wait(ctx, telemetry.Raw, "wait_raw", args)
}

func (r *Runner) wait(ctx context.Context, repr telemetry.Representation, op string, args []any) (time.Duration, error) {
	spec, err := r.resolveWaitArgs(op, args)
	if err != nil {
		return 0, err
	}
	switch spec.kind {
	case waitIndefinite:
		start := time.Now()
		_, err := r.delayer.Delay(ctx, poll.Indefinite)
		elapsed := time.Since(start)
		if err != nil {
			return elapsed, err
		}
		r.logger.Info(fmt.Sprintf("WAIT: Indefinite for actual time of %s seconds", formatSeconds(elapsed)), "operation", op)
		return elapsed, nil
	case waitSleep:
		start := time.Now()
		_, err := r.delayer.Delay(ctx, spec.sleep)
		elapsed := time.Since(start)
		if err != nil {
			return elapsed, err
		}
		r.logger.Info(fmt.Sprintf("WAIT: %s seconds with actual time of %s seconds",
			formatSeconds(spec.sleep), formatSeconds(elapsed)), "operation", op)
		return elapsed, nil
	default:
		return r.waitComparison(ctx, repr, op, SemanticsWait, spec)
	}
}

// WaitCheck polls a condition and raises a CheckFailure when the
// timeout elapses before it holds.
//
//	WaitCheck(ctx, "TGT PKT ITEM > 1", timeout [, pollingRate])
//	WaitCheck(ctx, target, packet, item, comparison, timeout [, pollingRate])
func (r *Runner) WaitCheck(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitCheck(ctx, telemetry.Converted, "wait_check", args)
}

// WaitCheckRaw is WaitCheck against the raw value.
func (r *Runner) WaitCheckRaw(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitCheck(ctx, telemetry.Raw, "wait_check_raw", args)
}

func (r *Runner) waitCheck(ctx context.Context, repr telemetry.Representation, op string, args []any) (time.Duration, error) {
	spec, err := r.resolveWaitCheckArgs(op, args)
	if err != nil {
		return 0, err
	}
	return r.waitComparison(ctx, repr, op, SemanticsWaitCheck, spec)
}

func (r *Runner) waitComparison(ctx context.Context, repr telemetry.Representation, op string, sem Semantics, spec waitSpec) (time.Duration, error) {
	ref := spec.ref
	cmp := assertion.Operator{Text: ref.comparison}
	out, err := poll.Loop(ctx, poll.Params{
		Sample: func(ctx context.Context) (telemetry.Value, error) {
			return r.provider.Sample(ctx, ref.target, ref.packet, ref.item, repr)
		},
		Evaluate: func(v telemetry.Value) (bool, error) {
			res, err := assertion.Evaluate(v, cmp)
			return res.Satisfied, err
		},
		Timeout:     spec.timeout,
		PollingRate: spec.rate,
		Delayer:     r.delayer,
	})
	if err != nil {
		return 0, err
	}
	msg := comparisonMessage(sem, ref, out.Value, out.Satisfied, out.Elapsed, true)
	itemText := upcase(ref.target, ref.packet, ref.item)
	return out.Elapsed, r.report(ctx, sem, op, itemText, msg, out.Satisfied, out.Elapsed)
}

// WaitTolerance polls until an item lies within expected ± tolerance.
// On timeout the script continues with a warning.
//
//	WaitTolerance(ctx, "TGT PKT ITEM", expected, tolerance, timeout [, pollingRate])
//	WaitTolerance(ctx, target, packet, item, expected, tolerance, timeout [, pollingRate])
func (r *Runner) WaitTolerance(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitTolerance(ctx, telemetry.Converted, "wait_tolerance", SemanticsWait, args)
}

// WaitToleranceRaw is WaitTolerance against the raw value.
func (r *Runner) WaitToleranceRaw(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitTolerance(ctx, telemetry.Raw, "wait_tolerance_raw", SemanticsWait, args)
}

// WaitCheckTolerance is WaitTolerance with a CheckFailure on timeout.
func (r *Runner) WaitCheckTolerance(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitTolerance(ctx, telemetry.Converted, "wait_check_tolerance", SemanticsWaitCheck, args)
}

// WaitCheckToleranceRaw is WaitCheckTolerance against the raw value.
func (r *Runner) WaitCheckToleranceRaw(ctx context.Context, args ...any) (time.Duration, error) {
	return r.waitTolerance(ctx, telemetry.Raw, "wait_check_tolerance_raw", SemanticsWaitCheck, args)
}

func (r *Runner) waitTolerance(ctx context.Context, repr telemetry.Representation, op string, sem Semantics, args []any) (time.Duration, error) {
	spec, err := r.resolveWaitToleranceArgs(op, args)
	if err != nil {
		return 0, err
	}
	ref := spec.ref
	tol := assertion.Tolerance{Expected: ref.expected, Tol: ref.tolerance}

	// The last evaluation's per-element details feed the report.
	var last assertion.Result
	out, err := poll.Loop(ctx, poll.Params{
		Sample: func(ctx context.Context) (telemetry.Value, error) {
			return r.provider.Sample(ctx, ref.target, ref.packet, ref.item, repr)
		},
		Evaluate: func(v telemetry.Value) (bool, error) {
			res, err := assertion.EvaluateToleranceOp(v, tol, op)
			if err != nil {
				return false, err
			}
			last = res
			return res.Satisfied, nil
		},
		Timeout:     spec.timeout,
		PollingRate: spec.rate,
		Delayer:     r.delayer,
	})
	if err != nil {
		return 0, err
	}
	msg := toleranceMessage(sem, ref, last.Details, out.Value.IsVector(), out.Elapsed, true)
	itemText := upcase(ref.target, ref.packet, ref.item)
	return out.Elapsed, r.report(ctx, sem, op, itemText, msg, out.Satisfied, out.Elapsed)
}

// WaitExpression polls a custom expression. On timeout the script
// continues with a warning. A non-positive pollingRate uses the
// default.
func (r *Runner) WaitExpression(ctx context.Context, text string, timeout, pollingRate time.Duration, bindings map[string]any) (time.Duration, error) {
	return r.waitExpression(ctx, "wait_expression", SemanticsWait, text, timeout, pollingRate, bindings)
}

// WaitCheckExpression polls a custom expression and raises a
// CheckFailure when the timeout elapses before it holds.
func (r *Runner) WaitCheckExpression(ctx context.Context, text string, timeout, pollingRate time.Duration, bindings map[string]any) (time.Duration, error) {
	return r.waitExpression(ctx, "wait_check_expression", SemanticsWaitCheck, text, timeout, pollingRate, bindings)
}

// WaitExpressionStopOnTimeout is an alias for WaitCheckExpression kept
// for script compatibility.
func (r *Runner) WaitExpressionStopOnTimeout(ctx context.Context, text string, timeout, pollingRate time.Duration, bindings map[string]any) (time.Duration, error) {
	return r.WaitCheckExpression(ctx, text, timeout, pollingRate, bindings)
}

func (r *Runner) waitExpression(ctx context.Context, op string, sem Semantics, text string, timeout, pollingRate time.Duration, bindings map[string]any) (time.Duration, error) {
	out, err := r.pollExpression(ctx, text, bindings, timeout, pollingRate)
	if err != nil {
		return 0, err
	}
	msg := expressionMessage(sem, text, out.Satisfied, out.Elapsed, true)
	return out.Elapsed, r.report(ctx, sem, op, text, msg, out.Satisfied, out.Elapsed)
}

func (r *Runner) pollExpression(ctx context.Context, text string, bindings map[string]any, timeout, pollingRate time.Duration) (poll.Outcome, error) {
	if pollingRate <= 0 {
		pollingRate = r.pollingRate
	}
	cmp := assertion.Expression{Text: text, Bindings: bindings}
	return poll.Loop(ctx, poll.Params{
		Sample: func(ctx context.Context) (telemetry.Value, error) {
			return telemetry.Value{}, nil
		},
		Evaluate: func(v telemetry.Value) (bool, error) {
			res, err := assertion.Evaluate(v, cmp)
			return res.Satisfied, err
		},
		Timeout:     timeout,
		PollingRate: pollingRate,
		Delayer:     r.delayer,
	})
}

// WaitPacket waits for numPackets additional packets to be received, by
// polling the packet's RECEIVED_COUNT item. On timeout the script
// continues with a warning. A zero pollingRate uses the default.
func (r *Runner) WaitPacket(ctx context.Context, target, packet string, numPackets int, timeout, pollingRate time.Duration) (time.Duration, error) {
	return r.waitPacket(ctx, "wait_packet", SemanticsWait, target, packet, numPackets, timeout, pollingRate)
}

// WaitCheckPacket is WaitPacket with a CheckFailure on timeout.
func (r *Runner) WaitCheckPacket(ctx context.Context, target, packet string, numPackets int, timeout, pollingRate time.Duration) (time.Duration, error) {
	return r.waitPacket(ctx, "wait_check_packet", SemanticsWaitCheck, target, packet, numPackets, timeout, pollingRate)
}

func (r *Runner) waitPacket(ctx context.Context, op string, sem Semantics, target, packet string, numPackets int, timeout, pollingRate time.Duration) (time.Duration, error) {
	if pollingRate <= 0 {
		pollingRate = r.pollingRate
	}
	initial, err := r.receivedCount(ctx, target, packet)
	if err != nil {
		return 0, err
	}
	spec := waitSpec{
		kind: waitComparison,
		ref: itemRef{
			target: target, packet: packet, item: telemetry.ReceivedCountItem,
			comparison: fmt.Sprintf(">= %d", initial+int64(numPackets)),
		},
		timeout: timeout,
		rate:    pollingRate,
	}
	ref := spec.ref
	cmp := assertion.Operator{Text: ref.comparison}
	out, err := poll.Loop(ctx, poll.Params{
		Sample: func(ctx context.Context) (telemetry.Value, error) {
			return r.provider.Sample(ctx, ref.target, ref.packet, ref.item, telemetry.Converted)
		},
		Evaluate: func(v telemetry.Value) (bool, error) {
			res, err := assertion.Evaluate(v, cmp)
			return res.Satisfied, err
		},
		Timeout:     spec.timeout,
		PollingRate: spec.rate,
		Delayer:     r.delayer,
	})
	if err != nil {
		return 0, err
	}

	received := int64(0)
	if f, ok := out.Value.Float(); ok {
		received = int64(f) - initial
	}
	packetText := strings.ToUpper(target) + " " + strings.ToUpper(packet)
	var msg string
	if out.Satisfied {
		msg = fmt.Sprintf("%s: %s received %d times after waiting %s seconds",
			sem.prefix(), packetText, received, formatSeconds(out.Elapsed))
	} else {
		msg = fmt.Sprintf("%s: %s expected to be received %d times but only received %d times after waiting %s seconds",
			sem.prefix(), packetText, numPackets, received, formatSeconds(out.Elapsed))
	}
	return out.Elapsed, r.report(ctx, sem, op, packetText, msg, out.Satisfied, out.Elapsed)
}

func (r *Runner) receivedCount(ctx context.Context, target, packet string) (int64, error) {
	v, err := r.provider.Sample(ctx, target, packet, telemetry.ReceivedCountItem, telemetry.Converted)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("non-numeric %s for %s %s: %s", telemetry.ReceivedCountItem, target, packet, v)
	}
	return int64(f), nil
}
