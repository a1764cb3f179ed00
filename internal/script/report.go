package script

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/halcyonix/telewait/internal/assertion"
	"github.com/halcyonix/telewait/internal/storage"
	"github.com/halcyonix/telewait/internal/telemetry"
)

// Semantics selects what a failed predicate does: raise, warn, or raise
// only after the full wait ran to timeout.
type Semantics int

const (
	SemanticsCheck Semantics = iota
	SemanticsWait
	SemanticsWaitCheck
)

func (s Semantics) String() string {
	switch s {
	case SemanticsCheck:
		return "CHECK"
	case SemanticsWait:
		return "WAIT"
	case SemanticsWaitCheck:
		return "WAIT_CHECK"
	default:
		return fmt.Sprintf("Semantics(%d)", int(s))
	}
}

// prefix returns the display prefix for messages under these semantics.
// WAIT_CHECK reports as CHECK: the raise happens after the wait.
func (s Semantics) prefix() string {
	if s == SemanticsWait {
		return "WAIT"
	}
	return "CHECK"
}

// report logs or raises one outcome. Satisfied outcomes log at info.
// Unsatisfied outcomes warn under WAIT semantics and become a
// CheckFailure otherwise. The outcome is recorded either way.
func (r *Runner) report(ctx context.Context, sem Semantics, op, itemText, message string, satisfied bool, elapsed time.Duration) error {
	r.record(ctx, op, itemText, satisfied, message, elapsed)
	if satisfied {
		r.logger.Info(message, "operation", op)
		return nil
	}
	if sem == SemanticsWait {
		r.logger.Warn(message, "operation", op)
		return nil
	}
	return &CheckFailure{Message: message}
}

func (r *Runner) record(ctx context.Context, op, itemText string, satisfied bool, message string, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.RecordOutcome(ctx, &storage.Outcome{
		Time:      time.Now(),
		Operation: op,
		Item:      itemText,
		Satisfied: satisfied,
		Message:   message,
		Elapsed:   elapsed,
	})
	if err != nil {
		r.logger.Warn("record outcome", "operation", op, "error", err)
	}
}

// upcase renders "TARGET PACKET ITEM" for display.
func upcase(target, packet, item string) string {
	return strings.ToUpper(target) + " " + strings.ToUpper(packet) + " " + strings.ToUpper(item)
}

// formatFloat matches the original display precision for numbers.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func formatSeconds(d time.Duration) string {
	return formatFloat(d.Seconds())
}

// comparisonMessage builds the success/failure line for an operator
// comparison, with elapsed appended for polled waits.
func comparisonMessage(sem Semantics, ref itemRef, value telemetry.Value, satisfied bool, elapsed time.Duration, polled bool) string {
	verdict := "failed"
	if satisfied {
		verdict = "success"
	}
	msg := fmt.Sprintf("%s: %s %s %s with value == %s",
		sem.prefix(), upcase(ref.target, ref.packet, ref.item), ref.comparison, verdict, value)
	if polled {
		msg += fmt.Sprintf(" after waiting %s seconds", formatSeconds(elapsed))
	}
	return msg
}

// toleranceMessage builds the per-element range report. Vector results
// produce one line per element, each marked independently.
func toleranceMessage(sem Semantics, ref toleranceRef, details []assertion.Detail, vector bool, elapsed time.Duration, polled bool) string {
	itemText := upcase(ref.target, ref.packet, ref.item)
	var lines []string
	for _, d := range details {
		label := itemText
		if vector {
			label = fmt.Sprintf("%s[%d]", itemText, d.Index)
		}
		rangeStr := fmt.Sprintf("range %s to %s with value == %s",
			formatFloat(d.Low), formatFloat(d.High), formatFloat(d.Value))
		if polled {
			rangeStr += fmt.Sprintf(" after waiting %s seconds", formatSeconds(elapsed))
		}
		if d.Satisfied {
			lines = append(lines, fmt.Sprintf("%s: %s was within %s", sem.prefix(), label, rangeStr))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s failed to be within %s", sem.prefix(), label, rangeStr))
		}
	}
	return strings.Join(lines, "\n")
}

// expressionMessage builds the TRUE/FALSE line for a custom expression.
func expressionMessage(sem Semantics, text string, satisfied bool, elapsed time.Duration, polled bool) string {
	verdict := "FALSE"
	if satisfied {
		verdict = "TRUE"
	}
	msg := fmt.Sprintf("%s: %s is %s", sem.prefix(), text, verdict)
	if polled {
		msg += fmt.Sprintf(" after waiting %s seconds", formatSeconds(elapsed))
	}
	return msg
}
