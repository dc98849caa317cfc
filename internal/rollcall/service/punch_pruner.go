package service

import (
	"context"
	"log"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
)

// PunchPruner periodically deletes stored punches older than a retention
// period.  A retention of 0 disables pruning entirely.
type PunchPruner struct {
	store     store.PunchStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewPunchPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of punch history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewPunchPruner creates a pruner but does not start it.
func NewPunchPruner(s store.PunchStore, cfg PrunerConfig, logger *log.Logger) *PunchPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &PunchPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *PunchPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("punch pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Printf("punch pruner started (retention=%dd, interval=%dh)",
		int(p.retention.Hours()/24), int(p.interval.Hours()))
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *PunchPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// PruneOnce runs a single pass and returns the number of punches deleted.
func (p *PunchPruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	punchesPruned.Add(deleted)
	if deleted > 0 {
		p.logger.Printf("punch prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

func (p *PunchPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *PunchPruner) prune(ctx context.Context) {
	if _, err := p.PruneOnce(ctx); err != nil {
		p.logger.Printf("punch prune error: %v", err)
	}
}
