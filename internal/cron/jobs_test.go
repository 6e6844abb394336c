package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
)

// testLedger implements ChatLedger for job tests.
type testLedger struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (int, error)
}

func (l *testLedger) ReconcileChats(ctx context.Context) (int, error) {
	l.calls.Add(1)
	if l.fn != nil {
		return l.fn(ctx)
	}
	return 0, nil
}

func TestChatReconcileJob_Name(t *testing.T) {
	t.Parallel()
	j := &ChatReconcileJob{Logger: slog.Default()}
	if j.Name() != "chat_reconcile" {
		t.Errorf("name = %q, want %q", j.Name(), "chat_reconcile")
	}
}

func TestChatReconcileJob_Schedule(t *testing.T) {
	t.Parallel()
	j := &ChatReconcileJob{Logger: slog.Default()}
	if j.Schedule() != "*/15 * * * *" {
		t.Errorf("schedule = %q, want default", j.Schedule())
	}
	j.ScheduleExpr = "0 * * * *"
	if j.Schedule() != "0 * * * *" {
		t.Errorf("schedule = %q, want override", j.Schedule())
	}
}

func TestChatReconcileJob_Run(t *testing.T) {
	t.Parallel()

	ledger := &testLedger{
		fn: func(context.Context) (int, error) { return 3, nil },
	}
	j := &ChatReconcileJob{Ledger: ledger, Logger: slog.Default()}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if ledger.calls.Load() != 1 {
		t.Errorf("reconcile calls = %d, want 1", ledger.calls.Load())
	}
}

func TestChatReconcileJob_RunError(t *testing.T) {
	t.Parallel()

	ledger := &testLedger{
		fn: func(context.Context) (int, error) { return 0, errors.New("db locked") },
	}
	j := &ChatReconcileJob{Ledger: ledger, Logger: slog.Default()}

	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing ledger")
	}
}
