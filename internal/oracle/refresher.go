package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// Refresher warms the rate cache on a cron schedule.
type Refresher struct {
	cache    *CachedOracle
	currency string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *logging.Logger
}

// NewRefresher schedules cache refreshes. spec is a standard five field
// cron expression or a descriptor such as "@every 5m".
func NewRefresher(cache *CachedOracle, currency, spec string, logger *logging.Logger) (*Refresher, error) {
	r := &Refresher{
		cache:    cache,
		currency: currency,
		timeout:  30 * time.Second,
		cron:     cron.New(),
		logger:   logger,
	}
	if _, err := r.cron.AddFunc(spec, r.runOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Run starts the schedule and blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	r.runOnce()
	r.cron.Start()
	<-ctx.Done()
	<-r.cron.Stop().Done()
}

func (r *Refresher) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.cache.Refresh(ctx, r.currency); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Exchange rate refresh failed")
		return
	}
	r.logger.WithContext(ctx).Debug("Exchange rates refreshed")
}
