package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner periodically removes records idle for longer than a TTL.
type Pruner struct {
	cron *cron.Cron
}

// NewPruner schedules pruning of store on spec (standard cron syntax or
// descriptors such as "@every 1h").
func NewPruner(store Store, spec string, ttl time.Duration, logger *slog.Logger) (*Pruner, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := store.Prune(context.Background(), time.Now().Add(-ttl))
		if err != nil {
			logger.Warn("session: prune failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			logger.Info("session: pruned idle conversations", slog.Int64("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("session: prune schedule %q: %w", spec, err)
	}
	return &Pruner{cron: c}, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running prune to finish.
func (p *Pruner) Run(ctx context.Context) error {
	p.cron.Start()
	<-ctx.Done()
	<-p.cron.Stop().Done()
	return nil
}
