package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TurnStore is the slice of the store the cleaner needs.
type TurnStore interface {
	PruneTurns(ctx context.Context, maxAge time.Duration) (int64, error)
	DBSizeBytes(ctx context.Context) (int64, error)
}

// SizeGauge receives the database size after each pass.
type SizeGauge interface {
	SetDBSize(bytes float64)
}

// Cleaner prunes old conversation turns and reports the database size.
type Cleaner struct {
	cfg    Config
	store  TurnStore
	gauge  SizeGauge
	logger zerolog.Logger
}

// NewCleaner creates a new Cleaner. gauge may be nil.
func NewCleaner(cfg Config, store TurnStore, gauge SizeGauge, logger zerolog.Logger) *Cleaner {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultConfig().CheckInterval
	}
	return &Cleaner{
		cfg:    cfg,
		store:  store,
		gauge:  gauge,
		logger: logger.With().Str("component", "cleanup").Logger(),
	}
}

// RunOnce performs a single pass. A prune failure does not stop the size
// report.
func (c *Cleaner) RunOnce(ctx context.Context) (Report, error) {
	var (
		rep      Report
		pruneErr error
	)

	if c.cfg.Retention > 0 {
		n, err := c.store.PruneTurns(ctx, c.cfg.Retention)
		if err != nil {
			pruneErr = fmt.Errorf("failed to prune conversation turns: %w", err)
		} else {
			rep.Pruned = n
			if n > 0 {
				c.logger.Info().Int64("deleted", n).Dur("retention", c.cfg.Retention).Msg("pruned conversation turns")
			}
		}
	}

	size, err := c.store.DBSizeBytes(ctx)
	if err != nil {
		if pruneErr != nil {
			return rep, pruneErr
		}
		return rep, fmt.Errorf("failed to read database size: %w", err)
	}
	rep.DBBytes = size
	if c.gauge != nil {
		c.gauge.SetDBSize(float64(size))
	}

	return rep, pruneErr
}

// Run performs a pass immediately and then every CheckInterval until ctx is
// done.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	c.logger.Info().
		Dur("interval", c.cfg.CheckInterval).
		Dur("retention", c.cfg.Retention).
		Msg("cleanup loop started")

	for {
		if _, err := c.RunOnce(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("cleanup pass failed")
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("cleanup loop stopped")
			return
		case <-ticker.C:
		}
	}
}
