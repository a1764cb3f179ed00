// Package poll implements the timing core of the wait/check engine: a
// synchronous sample-evaluate loop against an absolute deadline, with
// drift-compensated sleeps and mid-wait cancellation.
package poll

import (
	"context"
	"time"

	"github.com/halcyonix/telewait/internal/telemetry"
)

// Outcome is the result of one loop invocation. It never encodes an
// error: failure-vs-warning decisions belong to the caller.
type Outcome struct {
	Satisfied bool
	Value     telemetry.Value
	Elapsed   time.Duration
	Canceled  bool
}

// Params drives one loop invocation.
type Params struct {
	// Sample fetches a fresh value. Its latency counts against the
	// deadline.
	Sample func(ctx context.Context) (telemetry.Value, error)
	// Evaluate decides whether the value satisfies the predicate. An
	// error aborts the loop immediately.
	Evaluate func(v telemetry.Value) (bool, error)
	// Timeout is the hard wall-clock budget. Zero means exactly one
	// sample+evaluate cycle with no delay.
	Timeout time.Duration
	// PollingRate is the target interval between successive samples.
	PollingRate time.Duration
	// Delayer provides the cancellable pause between samples.
	Delayer Delayer
}

// nowFunc allows overriding time in tests.
var nowFunc = time.Now

// Loop polls until the predicate holds, the deadline passes, or the
// delay is canceled. A cancellation triggers exactly one final
// sample+evaluate before returning.
//
// Each tick measures its own cost and shortens the following sleep so
// the loop never drifts past the deadline: total wall-clock is bounded
// by timeout plus one evaluation cost, not timeout plus a polling
// interval.
func Loop(ctx context.Context, p Params) (Outcome, error) {
	start := nowFunc()
	deadline := start.Add(p.Timeout)

	var value telemetry.Value
	for {
		tickStart := nowFunc()
		var err error
		value, err = p.Sample(ctx)
		if err != nil {
			return Outcome{}, err
		}
		ok, err := p.Evaluate(value)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			return Outcome{Satisfied: true, Value: value, Elapsed: nowFunc().Sub(start)}, nil
		}
		if !nowFunc().Before(deadline) {
			break
		}

		sleep := p.PollingRate - nowFunc().Sub(tickStart)
		if remaining := deadline.Sub(nowFunc()); remaining < sleep {
			sleep = remaining
		}
		if sleep < 0 {
			sleep = 0
		}

		canceled, err := p.Delayer.Delay(ctx, sleep)
		if err != nil {
			return Outcome{}, err
		}
		if canceled {
			value, err = p.Sample(ctx)
			if err != nil {
				return Outcome{}, err
			}
			ok, err := p.Evaluate(value)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Satisfied: ok,
				Value:     value,
				Elapsed:   nowFunc().Sub(start),
				Canceled:  !ok,
			}, nil
		}
	}

	return Outcome{Value: value, Elapsed: nowFunc().Sub(start)}, nil
}
