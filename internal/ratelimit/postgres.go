package ratelimit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"homefolio/pkg/logger"
)

// PostgresLimiter counts accepted requests in the rate_limit_log table over
// a trailing window. Count-then-insert is not atomic across replicas.
type PostgresLimiter struct {
	db       *sql.DB
	failOpen bool
	now      func() time.Time
}

func NewPostgresLimiter(db *sql.DB, failOpen bool) *PostgresLimiter {
	return &PostgresLimiter{db: db, failOpen: failOpen, now: time.Now}
}

func (l *PostgresLimiter) Check(ctx context.Context, identity string, opts Options) Result {
	now := l.now()
	since := now.Add(-opts.Window)

	var count int
	var oldest sql.NullTime
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at) FROM rate_limit_log
		 WHERE identity = $1 AND operation = $2 AND created_at > $3`,
		identity, opts.Operation, since,
	).Scan(&count, &oldest)
	if err != nil {
		return l.degraded(identity, opts, now, err)
	}

	resetAt := now.Add(opts.Window)
	if oldest.Valid {
		resetAt = oldest.Time.Add(opts.Window)
	}

	if count >= opts.MaxRequests {
		return Result{
			Allowed:   false,
			Limit:     opts.MaxRequests,
			Remaining: 0,
			ResetAt:   resetAt,
		}
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO rate_limit_log (id, identity, operation, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), identity, opts.Operation, now,
	)
	if err != nil {
		return l.degraded(identity, opts, now, err)
	}

	return Result{
		Allowed:   true,
		Limit:     opts.MaxRequests,
		Remaining: remaining(opts.MaxRequests, count+1),
		ResetAt:   resetAt,
	}
}

func (l *PostgresLimiter) degraded(identity string, opts Options, now time.Time, err error) Result {
	if l.failOpen {
		logger.Sugar.Warnw("Rate limit store unavailable, allowing request",
			"identity", identity, "operation", opts.Operation, "error", err)
	} else {
		logger.Sugar.Errorw("Rate limit store unavailable, denying request",
			"identity", identity, "operation", opts.Operation, "error", err)
	}
	return Result{
		Allowed:   l.failOpen,
		Limit:     opts.MaxRequests,
		Remaining: 0,
		ResetAt:   now.Add(opts.Window),
		Err:       err,
	}
}
