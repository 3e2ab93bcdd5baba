package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qualitrack/qc-api/pkg/metrics"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewBaseRepository creates a new base repository. Metrics may be nil.
func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	return BaseRepository{db: db, metrics: m}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// instrument records one database operation. The returned func takes the
// operation's final error and must be called exactly once.
func (r *BaseRepository) instrument(entity, operation string) func(err error) {
	if r.metrics == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.DatabaseOperations.WithLabelValues(entity, operation, status).Inc()
		r.metrics.DatabaseLatency.WithLabelValues(entity, operation).Observe(time.Since(start).Seconds())
	}
}
