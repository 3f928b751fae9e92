package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lakekeeper/catalog/internal/catalog"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/tasks"
)

// tabularExpirationHandler builds the Handler for the tabular_expiration
// queue: once a staged-for-deletion tabular's DeleteAfter has elapsed, the
// storage under its metadata location is removed. The tabular row itself is
// left in place; this handler does not enqueue a tabular_purge task.
func tabularExpirationHandler(uc *catalog.UseCase) tasks.Handler {
	return func(ctx context.Context, task domain.Task, _ domain.TaskInstance) error {
		var payload struct {
			TabularID string `json:"tabular_id"`
		}

		if err := decodePayload(task.PayloadJSON, &payload); err != nil {
			return err
		}

		id, err := parseTabularID(payload.TabularID)
		if err != nil {
			return err
		}

		t, err := uc.Tabulars.Get(ctx, id)
		if err != nil {
			return err
		}

		if t.DeleteAfter == nil || time.Now().Before(*t.DeleteAfter) {
			return fmt.Errorf("tabular %s is not yet eligible for expiration", id)
		}

		return uc.Store.RemoveAll(ctx, t.MetadataLocation)
	}
}

// tabularPurgeHandler builds the Handler for the tabular_purge queue: the
// final step after tabular_expiration has removed storage, dropping the
// identity row itself.
func tabularPurgeHandler(uc *catalog.UseCase) tasks.Handler {
	return func(ctx context.Context, task domain.Task, _ domain.TaskInstance) error {
		var payload struct {
			TabularID string `json:"tabular_id"`
		}

		if err := decodePayload(task.PayloadJSON, &payload); err != nil {
			return err
		}

		id, err := parseTabularID(payload.TabularID)
		if err != nil {
			return err
		}

		return uc.Tabulars.Purge(ctx, id)
	}
}

// tabularExpirationSweepHandler builds the Handler for the
// tabular_expiration_sweep queue: CronDriver promotes one tick of this
// queue every five minutes (the job's "*/5 * * * *" expression below), and
// this handler is what actually looks for
// due tabulars and fans each one out into its own tabular_expiration task,
// so expiration work stays individually retryable per tabular.
func tabularExpirationSweepHandler(uc *catalog.UseCase, enqueue tasks.Repository) tasks.Handler {
	const sweepBatchSize = 200

	return func(ctx context.Context, _ domain.Task, _ domain.TaskInstance) error {
		due, err := uc.Tabulars.ListExpired(ctx, time.Now(), sweepBatchSize)
		if err != nil {
			return err
		}

		for _, t := range due {
			payload, err := json.Marshal(struct {
				TabularID string `json:"tabular_id"`
			}{TabularID: t.ID.String()})
			if err != nil {
				return err
			}

			task := domain.Task{
				QueueName:      domain.TaskQueueTabularExpiration,
				ScheduleKind:   domain.TaskScheduleOneShot,
				WarehouseID:    &t.WarehouseID,
				PayloadJSON:    payload,
				IdempotencyKey: "tabular-expiration:" + t.ID.String(),
			}

			if _, err := enqueue.Enqueue(ctx, task, time.Now()); err != nil {
				return err
			}
		}

		return nil
	}
}

// tabularExpirationSweepJobs is the set of CronJob definitions CronDriver
// keeps promoting. A tick's payload carries nothing the handler reads; the
// work itself is the Postgres query inside tabularExpirationSweepHandler.
func tabularExpirationSweepJobs() []tasks.CronJob {
	return []tasks.CronJob{
		{
			QueueName:      domain.TaskQueueTabularExpirationSweep,
			CronExpression: "*/5 * * * *",
			MaxAttempts:    3,
			BuildPayload:   func(time.Time) ([]byte, error) { return []byte("{}"), nil },
		},
	}
}
