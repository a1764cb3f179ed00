package script

import (
	"fmt"
	"time"

	"github.com/halcyonix/telewait/internal/expr"
)

// DefaultPollingRate is the interval between samples when a call omits
// its polling-rate argument.
const DefaultPollingRate = 250 * time.Millisecond

// itemRef names one telemetry item plus an optional comparison.
type itemRef struct {
	target, packet, item string
	comparison           string
}

// resolveCheckArgs handles the check family:
//
//	check("TGT PKT ITEM > 1")
//	check(target, packet, item, comparison)
func resolveCheckArgs(op string, args []any) (itemRef, error) {
	switch len(args) {
	case 1:
		text, err := argString(op, args, 0)
		if err != nil {
			return itemRef{}, err
		}
		t, p, i, cmp, err := expr.SplitCheckText(text)
		if err != nil {
			return itemRef{}, err
		}
		return itemRef{target: t, packet: p, item: i, comparison: cmp}, nil
	case 4:
		return explicitItemRef(op, args, true)
	default:
		return itemRef{}, &ArgumentCountError{Op: op, Count: len(args)}
	}
}

// toleranceRef is an item plus tolerance parameters.
type toleranceRef struct {
	target, packet, item string
	expected, tolerance  any
}

// resolveCheckToleranceArgs handles the check_tolerance family:
//
//	check_tolerance("TGT PKT ITEM", expected, tolerance)
//	check_tolerance(target, packet, item, expected, tolerance)
func resolveCheckToleranceArgs(op string, args []any) (toleranceRef, error) {
	switch len(args) {
	case 3:
		text, err := argString(op, args, 0)
		if err != nil {
			return toleranceRef{}, err
		}
		t, p, i, err := expr.SplitItemText(text)
		if err != nil {
			return toleranceRef{}, err
		}
		return toleranceRef{target: t, packet: p, item: i, expected: args[1], tolerance: args[2]}, nil
	case 5:
		ref, err := explicitItemRef(op, args, false)
		if err != nil {
			return toleranceRef{}, err
		}
		return toleranceRef{
			target: ref.target, packet: ref.packet, item: ref.item,
			expected: args[3], tolerance: args[4],
		}, nil
	default:
		return toleranceRef{}, &ArgumentCountError{Op: op, Count: len(args)}
	}
}

type waitKind int

const (
	waitIndefinite waitKind = iota
	waitSleep
	waitComparison
)

// waitSpec is a resolved wait-family call.
type waitSpec struct {
	kind    waitKind
	sleep   time.Duration
	ref     itemRef
	timeout time.Duration
	rate    time.Duration
}

// resolveWaitArgs handles the wait family:
//
//	wait()
//	wait(seconds)
//	wait("TGT PKT ITEM > 1", timeout [, pollingRate])
//	wait(target, packet, item, comparison, timeout [, pollingRate])
func (r *Runner) resolveWaitArgs(op string, args []any) (waitSpec, error) {
	switch len(args) {
	case 0:
		return waitSpec{kind: waitIndefinite}, nil
	case 1:
		d, ok := argSeconds(args[0])
		if !ok {
			return waitSpec{}, fmt.Errorf("non-numeric wait time passed to %s()", op)
		}
		return waitSpec{kind: waitSleep, sleep: d}, nil
	case 2, 3:
		text, err := argString(op, args, 0)
		if err != nil {
			return waitSpec{}, err
		}
		t, p, i, cmp, err := expr.SplitCheckText(text)
		if err != nil {
			return waitSpec{}, err
		}
		spec := waitSpec{
			kind: waitComparison,
			ref:  itemRef{target: t, packet: p, item: i, comparison: cmp},
		}
		return r.fillWaitTiming(op, spec, args, 1)
	case 5, 6:
		ref, err := explicitItemRef(op, args, true)
		if err != nil {
			return waitSpec{}, err
		}
		return r.fillWaitTiming(op, waitSpec{kind: waitComparison, ref: ref}, args, 4)
	default:
		return waitSpec{}, &ArgumentCountError{Op: op, Count: len(args)}
	}
}

// resolveWaitCheckArgs handles the wait_check family:
//
//	wait_check("TGT PKT ITEM > 1", timeout [, pollingRate])
//	wait_check(target, packet, item, comparison, timeout [, pollingRate])
func (r *Runner) resolveWaitCheckArgs(op string, args []any) (waitSpec, error) {
	switch len(args) {
	case 2, 3:
		text, err := argString(op, args, 0)
		if err != nil {
			return waitSpec{}, err
		}
		t, p, i, cmp, err := expr.SplitCheckText(text)
		if err != nil {
			return waitSpec{}, err
		}
		spec := waitSpec{
			kind: waitComparison,
			ref:  itemRef{target: t, packet: p, item: i, comparison: cmp},
		}
		return r.fillWaitTiming(op, spec, args, 1)
	case 5, 6:
		ref, err := explicitItemRef(op, args, true)
		if err != nil {
			return waitSpec{}, err
		}
		return r.fillWaitTiming(op, waitSpec{kind: waitComparison, ref: ref}, args, 4)
	default:
		return waitSpec{}, &ArgumentCountError{Op: op, Count: len(args)}
	}
}

// waitToleranceSpec is a resolved wait_tolerance-family call.
type waitToleranceSpec struct {
	ref     toleranceRef
	timeout time.Duration
	rate    time.Duration
}

// resolveWaitToleranceArgs handles the wait_tolerance and
// wait_check_tolerance families:
//
//	wait_tolerance("TGT PKT ITEM", expected, tolerance, timeout [, pollingRate])
//	wait_tolerance(target, packet, item, expected, tolerance, timeout [, pollingRate])
func (r *Runner) resolveWaitToleranceArgs(op string, args []any) (waitToleranceSpec, error) {
	switch len(args) {
	case 4, 5:
		text, err := argString(op, args, 0)
		if err != nil {
			return waitToleranceSpec{}, err
		}
		t, p, i, err := expr.SplitItemText(text)
		if err != nil {
			return waitToleranceSpec{}, err
		}
		spec := waitToleranceSpec{ref: toleranceRef{
			target: t, packet: p, item: i, expected: args[1], tolerance: args[2],
		}}
		return r.fillToleranceTiming(op, spec, args, 3)
	case 6, 7:
		ref, err := explicitItemRef(op, args, false)
		if err != nil {
			return waitToleranceSpec{}, err
		}
		spec := waitToleranceSpec{ref: toleranceRef{
			target: ref.target, packet: ref.packet, item: ref.item,
			expected: args[3], tolerance: args[4],
		}}
		return r.fillToleranceTiming(op, spec, args, 5)
	default:
		return waitToleranceSpec{}, &ArgumentCountError{Op: op, Count: len(args)}
	}
}

func (r *Runner) fillWaitTiming(op string, spec waitSpec, args []any, timeoutAt int) (waitSpec, error) {
	timeout, rate, err := r.timing(op, args, timeoutAt)
	if err != nil {
		return waitSpec{}, err
	}
	spec.timeout = timeout
	spec.rate = rate
	return spec, nil
}

func (r *Runner) fillToleranceTiming(op string, spec waitToleranceSpec, args []any, timeoutAt int) (waitToleranceSpec, error) {
	timeout, rate, err := r.timing(op, args, timeoutAt)
	if err != nil {
		return waitToleranceSpec{}, err
	}
	spec.timeout = timeout
	spec.rate = rate
	return spec, nil
}

// timing extracts timeout and optional polling rate starting at index i.
func (r *Runner) timing(op string, args []any, i int) (timeout, rate time.Duration, err error) {
	timeout, ok := argSeconds(args[i])
	if !ok {
		return 0, 0, fmt.Errorf("non-numeric timeout passed to %s()", op)
	}
	rate = r.pollingRate
	if len(args) > i+1 {
		rate, ok = argSeconds(args[i+1])
		if !ok {
			return 0, 0, fmt.Errorf("non-numeric polling rate passed to %s()", op)
		}
	}
	return timeout, rate, nil
}

func explicitItemRef(op string, args []any, withComparison bool) (itemRef, error) {
	t, err := argString(op, args, 0)
	if err != nil {
		return itemRef{}, err
	}
	p, err := argString(op, args, 1)
	if err != nil {
		return itemRef{}, err
	}
	i, err := argString(op, args, 2)
	if err != nil {
		return itemRef{}, err
	}
	ref := itemRef{target: t, packet: p, item: i}
	if withComparison {
		cmp, err := argString(op, args, 3)
		if err != nil {
			return itemRef{}, err
		}
		ref.comparison = cmp
	}
	return ref, nil
}

func argString(op string, args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d of %s() must be a string, got %T", i+1, op, args[i])
	}
	return s, nil
}

// argSeconds converts a numeric seconds argument (or a time.Duration)
// to a duration.
func argSeconds(v any) (time.Duration, bool) {
	switch n := v.(type) {
	case time.Duration:
		return n, true
	case float64:
		return time.Duration(n * float64(time.Second)), true
	case float32:
		return time.Duration(float64(n) * float64(time.Second)), true
	case int:
		return time.Duration(n) * time.Second, true
	case int64:
		return time.Duration(n) * time.Second, true
	default:
		return 0, false
	}
}
