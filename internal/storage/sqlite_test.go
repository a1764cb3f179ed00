package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndListOutcomes(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	first := &Outcome{
		Time:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Operation: "check",
		Item:      "INST HEALTH_STATUS TEMP1",
		Satisfied: true,
		Message:   "CHECK: INST HEALTH_STATUS TEMP1 > 1 success with value == 2",
		Elapsed:   0,
	}
	if err := store.RecordOutcome(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 {
		t.Fatal("expected assigned id")
	}
	second := &Outcome{
		Time:      time.Date(2026, 8, 25, 12, 0, 5, 0, time.UTC),
		Operation: "wait_check",
		Item:      "INST HEALTH_STATUS TEMP1",
		Satisfied: false,
		Message:   "CHECK: INST HEALTH_STATUS TEMP1 > 1 failed with value == 0 after waiting 5 seconds",
		Elapsed:   5 * time.Second,
	}
	if err := store.RecordOutcome(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListOutcomes(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}
	// Newest first.
	if got[0].Operation != "wait_check" || got[1].Operation != "check" {
		t.Fatalf("bad order: %s, %s", got[0].Operation, got[1].Operation)
	}
	if got[0].Satisfied || !got[1].Satisfied {
		t.Fatalf("bad satisfied flags: %v, %v", got[0].Satisfied, got[1].Satisfied)
	}
	if got[0].Elapsed != 5*time.Second {
		t.Fatalf("elapsed %s, want 5s", got[0].Elapsed)
	}
	if !got[1].Time.Equal(first.Time) {
		t.Fatalf("time %s, want %s", got[1].Time, first.Time)
	}
	if got[1].Message != first.Message {
		t.Fatalf("message %q", got[1].Message)
	}
}

func TestListOutcomesLimit(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := store.RecordOutcome(ctx, &Outcome{
			Time:      time.Now(),
			Operation: "check",
			Item:      "INST HEALTH_STATUS TEMP1",
			Satisfied: true,
			Message:   "ok",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.ListOutcomes(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(got))
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.RecordOutcome(ctx, &Outcome{Time: time.Now(), Operation: "check", Item: "A B C", Satisfied: true, Message: "ok"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, err := reopened.ListOutcomes(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the recorded outcome to survive reopen, got %d", len(got))
	}
}
