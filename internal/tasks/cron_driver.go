package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
)

// CronJob is a recurring task definition CronDriver keeps enqueuing.
type CronJob struct {
	QueueName      string
	CronExpression string
	MaxAttempts    int
	BuildPayload   func(tick time.Time) ([]byte, error)
}

// CronDriver periodically computes each registered CronJob's next tick and,
// racing every other catalogd replica for the DistributedLock keyed by that
// tick, enqueues the instance exactly once. Unlike the per-instance
// SKIP LOCKED polling in PostgresRepository (which fairly distributes
// already-enqueued work across workers), a cron tick must be *promoted*
// into the queue by exactly one party; that's the job this type exists for.
type CronDriver struct {
	jobs     []CronJob
	repo     Repository
	schedule CronScheduler
	lock     DistributedLock
	logger   mlog.Logger
	interval time.Duration
}

// NewCronDriver builds a driver over the given jobs. lock may be NoopLock{}
// when no redis connection is configured.
func NewCronDriver(jobs []CronJob, repo Repository, schedule CronScheduler, lock DistributedLock, logger mlog.Logger, interval time.Duration) *CronDriver {
	return &CronDriver{jobs: jobs, repo: repo, schedule: schedule, lock: lock, logger: logger, interval: interval}
}

// Run ticks every interval until ctx is cancelled, attempting to promote
// each job's next run.
func (d *CronDriver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *CronDriver) tick(ctx context.Context) {
	now := time.Now()

	for _, job := range d.jobs {
		if err := d.promote(ctx, job, now); err != nil {
			d.logger.Warnf("cron driver: promote failed for queue %s: %v", job.QueueName, err)
		}
	}
}

func (d *CronDriver) promote(ctx context.Context, job CronJob, now time.Time) error {
	next, err := d.schedule.Next(job.CronExpression, now.Add(-time.Minute))
	if err != nil {
		return err
	}

	if next.After(now.Add(d.interval)) {
		return nil // not yet due within this polling window
	}

	lockKey := job.QueueName + "@" + next.UTC().Format(time.RFC3339)

	acquired, err := d.lock.TryAcquire(ctx, lockKey, d.interval)
	if err != nil {
		return err
	}

	if !acquired {
		return nil // another replica is promoting this tick
	}

	payload, err := job.BuildPayload(next)
	if err != nil {
		return err
	}

	idempotencyKey := d.schedule.IdempotencyKeyForTick(job.QueueName, next)

	task := domain.Task{
		ID:             domain.TaskID(uuid.Must(uuid.NewV7())),
		QueueName:      job.QueueName,
		ScheduleKind:   domain.TaskScheduleCron,
		CronExpression: job.CronExpression,
		PayloadJSON:    payload,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}

	_, err = d.repo.Enqueue(ctx, task, next)

	return err
}
