package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// ChatLedger is the subset of the store needed by reconciliation jobs.
// Defined here to avoid a dependency on the store package.
type ChatLedger interface {
	ReconcileChats(ctx context.Context) (int, error)
}

// ChatReconcileJob rebuilds chat summaries that drifted from the message
// ledger, typically after a crash between a message insert and its chat
// summary update.
type ChatReconcileJob struct {
	Ledger       ChatLedger
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*ChatReconcileJob)(nil)

// Name implements Job.
func (j *ChatReconcileJob) Name() string {
	return "chat_reconcile"
}

// Schedule implements Job.
func (j *ChatReconcileJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run repairs missing chat summaries.
func (j *ChatReconcileJob) Run(ctx context.Context) error {
	repaired, err := j.Ledger.ReconcileChats(ctx)
	if err != nil {
		return fmt.Errorf("cron: chat reconcile: %w", err)
	}
	if repaired > 0 {
		j.Logger.Info("cron: repaired chat summaries", "count", repaired)
	}
	return nil
}
