package tasks

import (
	"context"
	"time"
)

// DistributedLock is a short-lived mutual-exclusion primitive keyed by an
// arbitrary string, used by CronDriver so that only one catalogd replica
// promotes a given cron tick into an enqueued task instance at a time.
// Enqueue is idempotency-key deduplicated regardless (see
// CronScheduler.IdempotencyKeyForTick), so a missing or unavailable lock
// degrades to "every replica tries, Postgres collapses the duplicates" —
// the lock is a throughput optimization, not a correctness requirement.
type DistributedLock interface {
	// TryAcquire attempts to take key for ttl, returning true if this
	// caller now holds it. A false return means someone else holds it;
	// the caller should skip this tick and let the lock holder enqueue it.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NoopLock always grants the lock, used when no redis connection is
// configured. Every replica then attempts every tick, relying entirely on
// the idempotency-key collapse at the Repository.Enqueue boundary.
type NoopLock struct{}

func (NoopLock) TryAcquire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
