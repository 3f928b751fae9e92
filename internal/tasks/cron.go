package tasks

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic use: stable per-tick key derivation, not a security boundary
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// field is one of a 5-field cron expression's positions.
type field struct {
	all    bool
	values map[int]bool
}

func parseField(raw string, min, max int) (field, error) {
	if raw == "*" {
		return field{all: true}, nil
	}

	values := make(map[int]bool)

	for _, part := range strings.Split(raw, ",") {
		if strings.Contains(part, "/") {
			segs := strings.SplitN(part, "/", 2)

			step, err := strconv.Atoi(segs[1])
			if err != nil || step <= 0 {
				return field{}, fmt.Errorf("tasks: invalid cron step %q", part)
			}

			for v := min; v <= max; v += step {
				values[v] = true
			}

			continue
		}

		v, err := strconv.Atoi(part)
		if err != nil || v < min || v > max {
			return field{}, fmt.Errorf("tasks: invalid cron field value %q", part)
		}

		values[v] = true
	}

	return field{values: values}, nil
}

func (f field) matches(v int) bool {
	return f.all || f.values[v]
}

// standardCron supports the five-field minute/hour/day-of-month/month/
// day-of-week form with "*", comma lists, and "*/N" steps. No named ranges
// ("MON-FRI") or "L"/"#" extensions. No cron library appeared anywhere in
// the example pack this module was grounded on, so this is a deliberately
// small stdlib implementation rather than an unreviewed ecosystem import;
// see DESIGN.md.
type standardCron struct{}

// NewStandardCron builds the default CronScheduler.
func NewStandardCron() CronScheduler { return standardCron{} }

func (standardCron) Next(expr string, after time.Time) (time.Time, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return time.Time{}, fmt.Errorf("tasks: cron expression must have 5 fields, got %d", len(parts))
	}

	minuteF, err := parseField(parts[0], 0, 59)
	if err != nil {
		return time.Time{}, err
	}

	hourF, err := parseField(parts[1], 0, 23)
	if err != nil {
		return time.Time{}, err
	}

	domF, err := parseField(parts[2], 1, 31)
	if err != nil {
		return time.Time{}, err
	}

	monthF, err := parseField(parts[3], 1, 12)
	if err != nil {
		return time.Time{}, err
	}

	dowF, err := parseField(parts[4], 0, 6)
	if err != nil {
		return time.Time{}, err
	}

	t := after.Truncate(time.Minute).Add(time.Minute)

	// Bounded search: a cron tick must occur within four years of any
	// reference time, or the expression is unsatisfiable.
	limit := after.AddDate(4, 0, 0)

	for t.Before(limit) {
		if monthF.matches(int(t.Month())) && domF.matches(t.Day()) && dowF.matches(int(t.Weekday())) &&
			hourF.matches(t.Hour()) && minuteF.matches(t.Minute()) {
			return t, nil
		}

		t = t.Add(time.Minute)
	}

	return time.Time{}, fmt.Errorf("tasks: no matching tick for cron expression %q within search window", expr)
}

func (standardCron) IdempotencyKeyForTick(taskBaseKey string, tick time.Time) string {
	sum := sha1.Sum([]byte(taskBaseKey + "@" + tick.UTC().Format(time.RFC3339))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
