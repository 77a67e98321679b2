package ratelimit

import (
	"context"
	"database/sql"
	"time"

	"homefolio/pkg/logger"
)

// Pruner periodically deletes rate_limit_log rows older than the longest
// configured window so the table stays bounded.
type Pruner struct {
	db        *sql.DB
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewPruner(db *sql.DB, retention, interval time.Duration) *Pruner {
	return &Pruner{db: db, retention: retention, interval: interval, now: time.Now}
}

// Run blocks until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PruneOnce(ctx); err != nil {
				logger.Sugar.Errorf("Error pruning rate limit log: %v", err)
			}
		}
	}
}

// PruneOnce deletes expired rows and returns how many were removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM rate_limit_log WHERE created_at < $1`, p.now().Add(-p.retention))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Sugar.Infof("Pruned %d rate limit log rows", n)
	}
	return n, nil
}
