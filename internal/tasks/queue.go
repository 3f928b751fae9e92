// Package tasks implements the durable task queue (spec.md §4.5): enqueue,
// SKIP LOCKED polling, success/failure recording, cron/one-shot scheduling,
// idempotency-key deduplication, stale-pick reclaim, and the two built-in
// queues (tabular_expiration, tabular_purge) the catalog core ships.
//
// Grounded on the teacher's repository pattern (postgres/organization
// .postgresql.go: squirrel query builder over database/sql,
// app.ValidatePGError at the constraint boundary) generalized to the
// poll-with-SKIP-LOCKED shape; the teacher itself has no queue of this
// kind, so the polling/scheduling design is original against the spec's
// contract (see DESIGN.md).
package tasks

import (
	"context"
	"time"

	"github.com/lakekeeper/catalog/internal/domain"
)

// Handler executes one task instance's payload. The queue never interprets
// payload contents; individual queue names (tabular_expiration,
// tabular_purge, or a caller-registered custom queue) each own a Handler.
type Handler func(ctx context.Context, task domain.Task, instance domain.TaskInstance) error

// Repository is the persistence seam for the task queue, implemented by
// internal/tasks/postgres.go over Postgres with FOR UPDATE SKIP LOCKED.
type Repository interface {
	// Enqueue inserts task and its first scheduled instance. If a task with
	// the same IdempotencyKey already exists in the queue, Enqueue is a
	// no-op and returns the existing task's id, not an error: idempotency
	// keys exist precisely so a duplicate enqueue collapses silently.
	Enqueue(ctx context.Context, task domain.Task, runAt time.Time) (domain.TaskID, error)

	// PollNext atomically claims one scheduled-or-stale instance from
	// queueName using SELECT ... FOR UPDATE SKIP LOCKED, marks it running,
	// and returns it with its parent Task. Returns ok=false when nothing is
	// eligible.
	PollNext(ctx context.Context, queueName string, workerID string, staleAfter time.Duration) (domain.Task, domain.TaskInstance, bool, error)

	// RecordSuccess marks instanceID succeeded. Cron tasks are advanced by
	// CronDriver, not here: a single instance succeeding tells us nothing
	// about whether this replica should be the one to enqueue the next
	// tick.
	RecordSuccess(ctx context.Context, instanceID domain.TaskInstanceID) error

	// RecordFailure marks instanceID failed with errMsg. If attempt count
	// is still below the task's max, it reschedules with backoff; otherwise
	// the instance is left in TaskInstanceStatusFailed terminally.
	RecordFailure(ctx context.Context, instanceID domain.TaskInstanceID, errMsg string, retryDelay time.Duration) error

	// Cancel transitions a scheduled (not yet picked up) instance to
	// cancelled. Cancelling a running instance is not supported; the
	// spec's cancellation contract only covers work that has not started.
	Cancel(ctx context.Context, instanceID domain.TaskInstanceID) error
}

// CronScheduler computes the next run time for a cron expression and a
// reference time, and derives a stable per-tick idempotency key so the same
// tick enqueued twice (e.g. by two racing schedulers) collapses to one row.
type CronScheduler interface {
	Next(expr string, after time.Time) (time.Time, error)
	IdempotencyKeyForTick(taskBaseKey string, tick time.Time) string
}
