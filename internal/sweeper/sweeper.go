// Package sweeper drives expiration processing: once per tick it asks the
// storage engine to settle every sell order whose expiration has passed.
// Correctness does not depend on the cadence, only on the wall-clock second
// passed to the engine, so a delayed or missed tick is harmless.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Engine is the slice of the storage engine the sweeper needs.
type Engine interface {
	ProcessExpiredSellOrders(ctx context.Context, now int64) (int64, error)
}

// Sweeper periodically settles expired sell orders.
type Sweeper struct {
	engine   Engine
	interval time.Duration
}

// New creates a Sweeper ticking at the given interval.
func New(engine Engine, interval time.Duration) *Sweeper {
	return &Sweeper{engine: engine, interval: interval}
}

// Run ticks until ctx is canceled. Sweep errors are logged and the loop
// continues; no error is fatal.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			swept, err := s.engine.ProcessExpiredSellOrders(ctx, time.Now().Unix())
			if err != nil {
				log.Error().Err(err).Msg("failed to process expired sell orders")
				continue
			}
			if swept > 0 {
				log.Info().Int64("orders", swept).Msg("settled expired sell orders")
			}
		}
	}
}
