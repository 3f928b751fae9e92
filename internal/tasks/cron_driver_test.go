package tasks_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/tasks"
)

// fakeCronRepository only implements the subset of tasks.Repository the
// driver touches.
type fakeCronRepository struct {
	mu       sync.Mutex
	enqueued []domain.Task
}

func (r *fakeCronRepository) Enqueue(_ context.Context, task domain.Task, _ time.Time) (domain.TaskID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enqueued = append(r.enqueued, task)

	return task.ID, nil
}

func (r *fakeCronRepository) PollNext(context.Context, string, string, time.Duration) (domain.Task, domain.TaskInstance, bool, error) {
	return domain.Task{}, domain.TaskInstance{}, false, nil
}

func (r *fakeCronRepository) RecordSuccess(context.Context, domain.TaskInstanceID) error { return nil }

func (r *fakeCronRepository) RecordFailure(context.Context, domain.TaskInstanceID, string, time.Duration) error {
	return nil
}

func (r *fakeCronRepository) Cancel(context.Context, domain.TaskInstanceID) error { return nil }

func (r *fakeCronRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.enqueued)
}

// fakeLock always grants when held is false, otherwise always denies,
// simulating a single other replica already holding every tick's lock.
type fakeLock struct {
	held bool
}

func (l fakeLock) TryAcquire(context.Context, string, time.Duration) (bool, error) {
	return !l.held, nil
}

func everyMinuteJob() tasks.CronJob {
	return tasks.CronJob{
		QueueName:      "test_queue",
		CronExpression: "* * * * *",
		MaxAttempts:    1,
		BuildPayload:   func(time.Time) ([]byte, error) { return []byte("{}"), nil },
	}
}

func TestCronDriver_Run_EnqueuesDueTick(t *testing.T) {
	repo := &fakeCronRepository{}
	driver := tasks.NewCronDriver([]tasks.CronJob{everyMinuteJob()}, repo, tasks.NewStandardCron(), tasks.NoopLock{}, mlog.Nop{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go driver.Run(ctx)

	require.Eventually(t, func() bool { return repo.count() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestCronDriver_Run_SkipsWhenLockHeldElsewhere(t *testing.T) {
	repo := &fakeCronRepository{}
	driver := tasks.NewCronDriver([]tasks.CronJob{everyMinuteJob()}, repo, tasks.NewStandardCron(), fakeLock{held: true}, mlog.Nop{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go driver.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, repo.count())
}
