package tasks

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mpg"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// PostgresRepository implements Repository against the task/task_instance
// tables, using squirrel the way the teacher's postgres repositories do
// (organization.postgresql.go) rather than hand-concatenated SQL.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewPostgresRepository wraps db for task queue access.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *PostgresRepository) Enqueue(ctx context.Context, task domain.Task, runAt time.Time) (domain.TaskID, error) {
	if task.ID == (domain.TaskID{}) {
		task.ID = domain.TaskID(uuid.Must(uuid.NewV7()))
	}

	insertTask := r.builder.Insert("task").
		Columns("id", "queue_name", "schedule_kind", "cron_expression", "warehouse_id", "payload", "idempotency_key", "created_at").
		Values(task.ID.String(), task.QueueName, string(task.ScheduleKind), task.CronExpression, warehouseIDOrNil(task.WarehouseID), task.PayloadJSON, task.IdempotencyKey, time.Now()).
		Suffix("ON CONFLICT (queue_name, idempotency_key) DO NOTHING RETURNING id")

	sqlStr, args, err := insertTask.ToSql()
	if err != nil {
		return domain.TaskID{}, err
	}

	var returnedID string

	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	if err := row.Scan(&returnedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existingID, lookupErr := r.lookupIDByIdempotencyKey(ctx, task.QueueName, task.IdempotencyKey)
			if lookupErr != nil {
				return domain.TaskID{}, lookupErr
			}

			return existingID, nil
		}

		return domain.TaskID{}, mpg.ValidatePGError(err, "task")
	}

	id, err := uuid.Parse(returnedID)
	if err != nil {
		return domain.TaskID{}, err
	}

	instanceSQL, instanceArgs, err := r.builder.Insert("task_instance").
		Columns("id", "task_id", "status", "attempt", "max_attempts", "scheduled_for", "created_at", "updated_at").
		Values(uuid.Must(uuid.NewV7()).String(), returnedID, string(domain.TaskInstanceStatusScheduled), 0, 5, runAt, time.Now(), time.Now()).
		ToSql()
	if err != nil {
		return domain.TaskID{}, err
	}

	if _, err := r.db.ExecContext(ctx, instanceSQL, instanceArgs...); err != nil {
		return domain.TaskID{}, mpg.ValidatePGError(err, "task_instance")
	}

	return domain.TaskID(id), nil
}

func (r *PostgresRepository) lookupIDByIdempotencyKey(ctx context.Context, queueName, idempotencyKey string) (domain.TaskID, error) {
	sqlStr, args, err := r.builder.Select("id").From("task").
		Where(sq.Eq{"queue_name": queueName, "idempotency_key": idempotencyKey}).ToSql()
	if err != nil {
		return domain.TaskID{}, err
	}

	var idStr string

	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&idStr); err != nil {
		return domain.TaskID{}, perr.Translate(perr.ErrTaskNotFound, "task")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return domain.TaskID{}, err
	}

	return domain.TaskID(id), nil
}

// PollNext claims one eligible instance: either newly scheduled and due, or
// running-but-stale (a crashed worker's abandoned pick), using
// FOR UPDATE SKIP LOCKED so concurrent pollers never block on each other.
func (r *PostgresRepository) PollNext(ctx context.Context, queueName, workerID string, staleAfter time.Duration) (domain.Task, domain.TaskInstance, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, domain.TaskInstance{}, false, err
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `
		SELECT ti.id, ti.task_id, ti.attempt, ti.max_attempts, ti.scheduled_for,
		       t.queue_name, t.schedule_kind, t.cron_expression, t.warehouse_id, t.payload, t.idempotency_key
		FROM task_instance ti
		JOIN task t ON t.id = ti.task_id
		WHERE t.queue_name = $1
		  AND (
		        (ti.status = 'scheduled' AND ti.scheduled_for <= now())
		     OR (ti.status = 'running' AND ti.picked_up_at < now() - $2::interval)
		      )
		ORDER BY ti.scheduled_for ASC
		FOR UPDATE OF ti SKIP LOCKED
		LIMIT 1`

	row := tx.QueryRowContext(ctx, query, queueName, staleAfter.String())

	var (
		instanceID, taskID, cronExpr, idempotencyKey string
		warehouseID                                  sql.NullString
		attempt, maxAttempts                         int
		scheduledFor                                 time.Time
		scheduleKind                                 string
		payload                                      []byte
	)

	if err := row.Scan(&instanceID, &taskID, &attempt, &maxAttempts, &scheduledFor,
		&queueName, &scheduleKind, &cronExpr, &warehouseID, &payload, &idempotencyKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, domain.TaskInstance{}, false, nil
		}

		return domain.Task{}, domain.TaskInstance{}, false, err
	}

	now := time.Now()

	if _, err := tx.ExecContext(ctx,
		`UPDATE task_instance SET status = 'running', picked_up_at = $1, picked_up_by = $2, attempt = attempt + 1, updated_at = $1 WHERE id = $3`,
		now, workerID, instanceID); err != nil {
		return domain.Task{}, domain.TaskInstance{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, domain.TaskInstance{}, false, err
	}

	taskUUID, err := uuid.Parse(taskID)
	if err != nil {
		return domain.Task{}, domain.TaskInstance{}, false, err
	}

	instanceUUID, err := uuid.Parse(instanceID)
	if err != nil {
		return domain.Task{}, domain.TaskInstance{}, false, err
	}

	task := domain.Task{
		ID:             domain.TaskID(taskUUID),
		QueueName:      queueName,
		ScheduleKind:   domain.TaskScheduleKind(scheduleKind),
		CronExpression: cronExpr,
		PayloadJSON:    payload,
		IdempotencyKey: idempotencyKey,
	}

	if warehouseID.Valid {
		whUUID, err := uuid.Parse(warehouseID.String)
		if err != nil {
			return domain.Task{}, domain.TaskInstance{}, false, err
		}

		wh := domain.WarehouseID(whUUID)
		task.WarehouseID = &wh
	}

	instance := domain.TaskInstance{
		ID:           domain.TaskInstanceID(instanceUUID),
		TaskID:       task.ID,
		Status:       domain.TaskInstanceStatusRunning,
		Attempt:      attempt + 1,
		MaxAttempts:  maxAttempts,
		ScheduledFor: scheduledFor,
		PickedUpAt:   &now,
		PickedUpBy:   workerID,
	}

	return task, instance, true, nil
}

func (r *PostgresRepository) RecordSuccess(ctx context.Context, instanceID domain.TaskInstanceID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_instance SET status = 'succeeded', updated_at = now() WHERE id = $1`,
		instanceID.String())

	return err
}

func (r *PostgresRepository) RecordFailure(ctx context.Context, instanceID domain.TaskInstanceID, errMsg string, retryDelay time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE task_instance
		SET status = CASE WHEN attempt >= max_attempts THEN 'failed' ELSE 'scheduled' END,
		    last_error = $2,
		    scheduled_for = now() + $3::interval,
		    picked_up_at = NULL,
		    picked_up_by = '',
		    updated_at = now()
		WHERE id = $1`,
		instanceID.String(), errMsg, retryDelay.String())

	return err
}

func (r *PostgresRepository) Cancel(ctx context.Context, instanceID domain.TaskInstanceID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE task_instance SET status = 'cancelled', updated_at = now() WHERE id = $1 AND status = 'scheduled'`,
		instanceID.String())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.Translate(perr.ErrTaskNotFound, "task_instance")
	}

	return nil
}

func warehouseIDOrNil(id *domain.WarehouseID) any {
	if id == nil {
		return nil
	}

	return id.String()
}
