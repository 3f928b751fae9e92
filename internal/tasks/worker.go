package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mtelemetry"
)

// Worker polls one queue on an interval and dispatches claimed instances to
// a registered Handler. Multiple Workers (same or different queue names)
// run concurrently against the same Repository; SKIP LOCKED is what makes
// that safe.
type Worker struct {
	repo         Repository
	logger       mlog.Logger
	id           string
	queueName    string
	handler      Handler
	pollInterval time.Duration
	staleAfter   time.Duration
}

// NewWorker builds a Worker with a random id, useful for PickedUpBy
// diagnostics when multiple workers share a queue.
func NewWorker(repo Repository, logger mlog.Logger, queueName string, handler Handler, pollInterval, staleAfter time.Duration) *Worker {
	return &Worker{
		repo:         repo,
		logger:       logger,
		id:           uuid.Must(uuid.NewV7()).String(),
		queueName:    queueName,
		handler:      handler,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
	}
}

// Run polls until ctx is cancelled. It never returns an error: a failure
// inside a single task instance is recorded against that instance and does
// not stop the worker loop.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Worker) pollOnce(ctx context.Context) {
	for {
		task, instance, ok, err := w.repo.PollNext(ctx, w.queueName, w.id, w.staleAfter)
		if err != nil {
			w.logger.Errorf("tasks: poll %s failed: %v", w.queueName, err)
			return
		}

		if !ok {
			return
		}

		w.execute(ctx, task, instance)
	}
}

func (w *Worker) execute(ctx context.Context, task domain.Task, instance domain.TaskInstance) {
	ctx, span := mtelemetry.Start(ctx, "tasks.execute."+task.QueueName)
	defer span.End()

	err := w.handler(ctx, task, instance)
	if err != nil {
		mtelemetry.HandleSpanError(span, "task instance failed", err)

		retryDelay := backoffFor(instance.Attempt)
		if recErr := w.repo.RecordFailure(ctx, instance.ID, err.Error(), retryDelay); recErr != nil {
			w.logger.Errorf("tasks: record failure for %s failed: %v", instance.ID, recErr)
		}

		return
	}

	if recErr := w.repo.RecordSuccess(ctx, instance.ID); recErr != nil {
		w.logger.Errorf("tasks: record success for %s failed: %v", instance.ID, recErr)
	}
}

// backoffFor computes the retry delay for the given attempt number using
// capped exponential growth, matching the jittered-backoff shape used
// elsewhere in the catalog core (internal/commit) without pulling in a
// second backoff library for a simple doubling sequence.
func backoffFor(attempt int) time.Duration {
	base := time.Second
	max := 5 * time.Minute

	d := base << attempt
	if d <= 0 || time.Duration(d) > max {
		return max
	}

	return time.Duration(d)
}

// Pool runs a fixed set of Workers and shuts them down together.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool builds a Pool from the given workers.
func NewPool(workers ...*Worker) *Pool {
	return &Pool{workers: workers}
}

// Start launches every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)

		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker's Run has returned (i.e. ctx was
// cancelled).
func (p *Pool) Wait() {
	p.wg.Wait()
}
