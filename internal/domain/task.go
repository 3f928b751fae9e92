package domain

import "time"

// TaskScheduleKind selects how a task's next run is computed once the
// current instance completes, per spec.md §4.5.
type TaskScheduleKind string

const (
	// TaskScheduleOneShot runs exactly once; no successor is enqueued.
	TaskScheduleOneShot TaskScheduleKind = "one_shot"
	// TaskScheduleCron re-enqueues on a cron expression, re-deriving the
	// idempotency key for each tick so duplicate ticks collapse.
	TaskScheduleCron TaskScheduleKind = "cron"
)

// Built-in task queue names the catalog core ships, per spec.md §4.5.
const (
	TaskQueueTabularExpiration      = "tabular_expiration"
	TaskQueueTabularPurge           = "tabular_purge"
	TaskQueueTabularExpirationSweep = "tabular_expiration_sweep"
)

// Task is the durable definition of a recurring or one-shot unit of work:
// what queue it belongs to, how it is scheduled, and the immutable payload
// each instance carries.
type Task struct {
	ID             TaskID
	QueueName      string
	ScheduleKind   TaskScheduleKind
	CronExpression string // set only when ScheduleKind == TaskScheduleCron

	WarehouseID *WarehouseID
	PayloadJSON []byte

	IdempotencyKey string

	CreatedAt time.Time
}

// TaskInstanceStatus is the lifecycle of one scheduled run of a Task.
type TaskInstanceStatus string

const (
	TaskInstanceStatusScheduled TaskInstanceStatus = "scheduled"
	TaskInstanceStatusRunning   TaskInstanceStatus = "running"
	TaskInstanceStatusSucceeded TaskInstanceStatus = "succeeded"
	TaskInstanceStatusFailed    TaskInstanceStatus = "failed"
	TaskInstanceStatusCancelled TaskInstanceStatus = "cancelled"
)

// TaskInstance is one concrete, pollable run of a Task. Workers acquire an
// instance via SKIP LOCKED polling, execute it, and record success or
// failure; the task queue (internal/tasks) owns the transition rules.
type TaskInstance struct {
	ID     TaskInstanceID
	TaskID TaskID

	Status      TaskInstanceStatus
	Attempt     int
	MaxAttempts int

	ScheduledFor time.Time
	PickedUpAt   *time.Time
	PickedUpBy   string // worker identity, for stale-pick diagnostics

	LastError *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsStale reports whether a running instance's pick has aged past the
// given threshold without a heartbeat, making it eligible for reclaim by
// another worker.
func (ti TaskInstance) IsStale(now time.Time, staleAfter time.Duration) bool {
	if ti.Status != TaskInstanceStatusRunning || ti.PickedUpAt == nil {
		return false
	}

	return now.Sub(*ti.PickedUpAt) > staleAfter
}
