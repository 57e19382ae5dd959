package cleanup

import (
	"context"
	"log"
	"time"

	"cypher-service/internal/observability"
)

// Purger removes expired self-destructing messages across all conversations.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs the periodic cleanup of self-destructing messages. A sweep
// that has started always finishes its conversation enumeration; context
// cancellation only stops the ticker loop between sweeps.
type Sweeper struct {
	purger   Purger
	interval time.Duration
}

// NewSweeper constructs a Sweeper.
func NewSweeper(purger Purger, interval time.Duration) *Sweeper {
	return &Sweeper{purger: purger, interval: interval}
}

// Run performs sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("cleanup sweeper started interval=%s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("cleanup sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep executes a single purge pass. Errors are logged, never returned:
// the sweep has no synchronous caller to surface them to.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	count, err := s.purger.PurgeExpired(ctx, start)
	observability.ObserveSweepDuration(time.Since(start))
	observability.AddMessagesPurged(count)
	if err != nil {
		log.Printf("cleanup sweep finished with errors purged=%d err=%v", count, err)
		return
	}
	log.Printf("cleanup sweep finished purged=%d duration=%s", count, time.Since(start))
}
