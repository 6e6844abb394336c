// Package cron runs the tracker's periodic maintenance work, currently
// the chat summary reconciliation job.
package cron

import "context"

// Job is one schedulable maintenance task.
type Job interface {
	// Name uniquely identifies the job. It keys the overlap lock and
	// appears in log lines.
	Name() string

	// Schedule returns a 5-field cron expression, e.g. "*/15 * * * *".
	Schedule() string

	// Run executes one tick. Implementations should honor ctx
	// cancellation so shutdown is not held up.
	Run(ctx context.Context) error
}
