package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/trimslot/trimslot/pkg/observability"
)

// Compactor runs Compact on a fixed interval, decoupled from request
// latency. The store stays bounded by the number of distinct revocations
// issued within one credential lifetime window.
type Compactor struct {
	store    Store
	interval time.Duration
	logger   *observability.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCompactor creates a compactor for the store. Interval must be positive.
func NewCompactor(store Store, interval time.Duration, logger *observability.Logger) *Compactor {
	return &Compactor{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (c *Compactor) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Compactor) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Compactor) sweep(ctx context.Context) {
	defer observability.RecoverPanic(c.logger, "revocation compaction sweep")

	now := time.Now()
	removed, err := c.store.Compact(ctx, now)
	if err != nil {
		c.logger.WithError(err).Error("revocation compaction failed")
		return
	}
	if removed > 0 {
		c.logger.WithField("removed", removed).Info("revocation compaction swept expired entries")
	}
}

// Stop terminates the loop and waits for the in-flight sweep to finish
func (c *Compactor) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}
