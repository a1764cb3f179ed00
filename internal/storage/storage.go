// Package storage persists the outcomes reported by check and wait
// operations so a script run leaves an auditable trail.
package storage

import (
	"context"
	"time"
)

// Outcome is one reported check/wait result.
type Outcome struct {
	ID        int64
	Time      time.Time
	Operation string
	Item      string
	Satisfied bool
	Message   string
	Elapsed   time.Duration
}

// Store records and lists outcomes.
type Store interface {
	RecordOutcome(ctx context.Context, o *Outcome) error
	ListOutcomes(ctx context.Context, limit int) ([]*Outcome, error)
	Close() error
}
