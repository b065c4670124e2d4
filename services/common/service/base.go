package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

const healthCheckTimeout = 5 * time.Second

// Health states reported by /health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Probe checks one dependency. A failing critical probe makes the service
// unhealthy; any other failing probe makes it degraded.
type Probe struct {
	Name     string
	Check    func(context.Context) error
	Critical bool
}

// BaseConfig contains shared configuration for all services.
type BaseConfig struct {
	ID      string
	Name    string
	Version string
	Logger  *logging.Logger
	Probes  []Probe
}

// BaseService owns the router, background workers and health state shared
// by every service.
type BaseService struct {
	id      string
	name    string
	version string
	logger  *logging.Logger
	router  *mux.Router

	// Lifecycle management
	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	statsFn func() map[string]any
	workers []func(context.Context)

	probes          []Probe
	healthMu        sync.RWMutex
	probeErrors     map[string]string
	lastHealthCheck time.Time
	startTime       time.Time
}

// NewBase constructs a BaseService from shared config.
func NewBase(cfg BaseConfig) *BaseService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefault(cfg.Name)
	}
	return &BaseService{
		id:          cfg.ID,
		name:        cfg.Name,
		version:     cfg.Version,
		logger:      logger,
		router:      mux.NewRouter(),
		stopCh:      make(chan struct{}),
		probes:      cfg.Probes,
		probeErrors: make(map[string]string),
	}
}

func (b *BaseService) ID() string                { return b.id }
func (b *BaseService) Name() string              { return b.name }
func (b *BaseService) Version() string           { return b.version }
func (b *BaseService) Router() *mux.Router       { return b.router }
func (b *BaseService) Logger() *logging.Logger   { return b.logger }
func (b *BaseService) StopChan() <-chan struct{} { return b.stopCh }

// WithStats sets a statistics provider function for the /info endpoint.
func (b *BaseService) WithStats(fn func() map[string]any) *BaseService {
	b.statsFn = fn
	return b
}

// AddWorker registers a background worker started by Start. Workers must
// return when their context is cancelled.
func (b *BaseService) AddWorker(fn func(context.Context)) *BaseService {
	b.workers = append(b.workers, fn)
	return b
}

// AddTickerWorker registers a periodic background worker. Errors are logged
// and the loop continues.
func (b *BaseService) AddTickerWorker(name string, interval time.Duration, fn func(context.Context) error) *BaseService {
	worker := func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					b.logger.WithContext(ctx).WithError(err).WithField("worker", name).Warn("Worker run failed")
				}
			}
		}
	}
	b.workers = append(b.workers, worker)
	return b
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (b *BaseService) Start(ctx context.Context) error {
	b.healthMu.Lock()
	if !b.startTime.IsZero() {
		b.healthMu.Unlock()
		return fmt.Errorf("%s already started", b.name)
	}
	b.startTime = time.Now()
	b.healthMu.Unlock()

	workerCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	for _, w := range b.workers {
		worker := w
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			worker(workerCtx)
		}()
	}

	b.logger.WithFields(map[string]interface{}{
		"service": b.name,
		"version": b.version,
		"workers": len(b.workers),
	}).Info("Service started")
	return nil
}

// Stop cancels the workers and waits for them. Safe to call more than once.
func (b *BaseService) Stop() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		if b.cancel != nil {
			b.cancel()
		}
		b.wg.Wait()
		b.logger.WithField("service", b.name).Info("Service stopped")
	})
	return nil
}

// WorkerCount returns the number of registered workers.
func (b *BaseService) WorkerCount() int {
	return len(b.workers)
}

// =============================================================================
// Health
// =============================================================================

// CheckHealth runs every probe and caches the results.
func (b *BaseService) CheckHealth(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	failures := make(map[string]string)
	for _, p := range b.probes {
		if err := p.Check(ctx); err != nil {
			failures[p.Name] = err.Error()
		}
	}

	b.healthMu.Lock()
	b.probeErrors = failures
	b.lastHealthCheck = time.Now()
	b.healthMu.Unlock()
}

// HealthStatus probes dependencies and returns the aggregated state.
func (b *BaseService) HealthStatus(ctx context.Context) string {
	b.CheckHealth(ctx)
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthStatusLocked()
}

// HealthReport is the outcome of the most recent CheckHealth.
type HealthReport struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	LastCheck time.Time         `json:"last_check"`
	Uptime    time.Duration     `json:"-"`
}

// Report returns the cached health report without probing. Passing probes
// map to "ok".
func (b *BaseService) Report() HealthReport {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()

	checks := make(map[string]string, len(b.probes))
	for _, p := range b.probes {
		checks[p.Name] = "ok"
		if msg, failed := b.probeErrors[p.Name]; failed {
			checks[p.Name] = msg
		}
	}

	var uptime time.Duration
	if !b.startTime.IsZero() {
		uptime = time.Since(b.startTime)
	}
	return HealthReport{
		Status:    b.healthStatusLocked(),
		Checks:    checks,
		LastCheck: b.lastHealthCheck,
		Uptime:    uptime,
	}
}

func (b *BaseService) healthStatusLocked() string {
	status := StatusHealthy
	for _, p := range b.probes {
		if _, failed := b.probeErrors[p.Name]; !failed {
			continue
		}
		if p.Critical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}
