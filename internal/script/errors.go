package script

import "fmt"

// ArgumentCountError reports a call made with an arity no signature of
// the operation accepts. Always caller misuse, never retried.
type ArgumentCountError struct {
	Op    string
	Count int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("invalid number of arguments (%d) passed to %s()", e.Count, e.Op)
}

// CheckFailure reports a predicate that did not hold under CHECK or
// WAIT_CHECK semantics. The message is the full display line, including
// the evaluated range or operator and the observed value.
type CheckFailure struct {
	Message string
}

func (e *CheckFailure) Error() string { return e.Message }
