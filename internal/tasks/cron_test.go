package tasks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/tasks"
)

func TestStandardCron_Next_EveryFiveMinutes(t *testing.T) {
	cron := tasks.NewStandardCron()

	after := time.Date(2026, 8, 1, 10, 2, 0, 0, time.UTC)

	next, err := cron.Next("*/5 * * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC), next)
}

func TestStandardCron_Next_ExactMinuteHour(t *testing.T) {
	cron := tasks.NewStandardCron()

	after := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	next, err := cron.Next("30 14 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC), next)
}

func TestStandardCron_Next_RollsToNextDayWhenHourPassed(t *testing.T) {
	cron := tasks.NewStandardCron()

	after := time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC)

	next, err := cron.Next("30 14 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 2, 14, 30, 0, 0, time.UTC), next)
}

func TestStandardCron_Next_CommaList(t *testing.T) {
	cron := tasks.NewStandardCron()

	after := time.Date(2026, 8, 1, 10, 16, 0, 0, time.UTC)

	next, err := cron.Next("0,15,30,45 * * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC), next)
}

func TestStandardCron_Next_RejectsWrongFieldCount(t *testing.T) {
	cron := tasks.NewStandardCron()

	_, err := cron.Next("* * *", time.Now())
	assert.Error(t, err)
}

func TestStandardCron_Next_RejectsOutOfRangeValue(t *testing.T) {
	cron := tasks.NewStandardCron()

	_, err := cron.Next("60 * * * *", time.Now())
	assert.Error(t, err)
}

func TestStandardCron_IdempotencyKeyForTick_IsDeterministicPerTick(t *testing.T) {
	cron := tasks.NewStandardCron()

	tick := time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC)

	a := cron.IdempotencyKeyForTick("tabular_expiration_sweep", tick)
	b := cron.IdempotencyKeyForTick("tabular_expiration_sweep", tick)
	assert.Equal(t, a, b)

	other := cron.IdempotencyKeyForTick("tabular_expiration_sweep", tick.Add(time.Minute))
	assert.NotEqual(t, a, other)
}
