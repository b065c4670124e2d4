// Package marble exposes the Greeno token exchange over HTTP.
package marble

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
	"github.com/R3E-Network/greeno_layer/internal/middleware"
	"github.com/R3E-Network/greeno_layer/internal/oracle"
	commonservice "github.com/R3E-Network/greeno_layer/services/common/service"
	"github.com/R3E-Network/greeno_layer/services/greeno"
)

const (
	ServiceID   = "greeno"
	ServiceName = "Greeno Token Service"
	Version     = "1.0.0"

	rateLimiterCleanupInterval = 5 * time.Minute
)

// Config wires the service to its collaborators.
type Config struct {
	Logger  *logging.Logger
	Metrics *metrics.Metrics

	Client       chain.Client
	Orchestrator *greeno.Orchestrator
	Store        greeno.RecordStore
	Rates        oracle.PriceOracle
	Currency     string
	TokenSpec    chain.TokenSpec

	// AdminSecret signs admin bearer tokens. Empty leaves admin routes open.
	AdminSecret    []byte
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int

	Probes  []commonservice.Probe
	Workers []func(context.Context)
}

// Service implements the Greeno HTTP API.
type Service struct {
	*commonservice.BaseService
	logger  *logging.Logger
	metrics *metrics.Metrics

	orchestrator *greeno.Orchestrator
	broker       *greeno.Broker
	history      *greeno.HistoryAggregator
	valuator     *greeno.Valuator
	admin        *greeno.TokenAdmin

	limiter     *middleware.RateLimiter
	adminAuth   *middleware.AuthMiddleware
	corsOrigins []string

	transfers      atomic.Int64
	notRecorded    atomic.Int64
	mirrorFailures atomic.Int64
}

// New creates the service and registers its routes.
func New(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("ledger client is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Rates == nil {
		return nil, fmt.Errorf("price oracle is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefault(ServiceID)
	}

	base := commonservice.NewBase(commonservice.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: Version,
		Logger:  logger,
		Probes:  cfg.Probes,
	})

	s := &Service{
		BaseService:  base,
		logger:       logger,
		metrics:      cfg.Metrics,
		orchestrator: cfg.Orchestrator,
		broker:       greeno.NewBroker(cfg.Orchestrator, cfg.Store, logger, cfg.Metrics),
		history:      greeno.NewHistoryAggregator(cfg.Store, cfg.Orchestrator, logger),
		valuator:     greeno.NewValuator(cfg.Client, cfg.Rates, cfg.Currency),
		admin:        greeno.NewTokenAdmin(cfg.Client, cfg.Orchestrator.Config().TokenID, cfg.TokenSpec, logger),
		corsOrigins:  cfg.CORSOrigins,
	}

	if cfg.RateLimitRPS > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		base.AddTickerWorker("ratelimit-cleanup", rateLimiterCleanupInterval, func(context.Context) error {
			s.limiter.Cleanup(rateLimiterCleanupInterval)
			return nil
		})
	}
	if len(cfg.AdminSecret) > 0 {
		s.adminAuth = middleware.NewAuthMiddleware(cfg.AdminSecret, middleware.RoleAdmin, logger)
	} else {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes are unauthenticated")
	}

	for _, w := range cfg.Workers {
		base.AddWorker(w)
	}

	base.WithStats(s.statistics)

	s.registerMiddleware()
	base.RegisterStandardRoutes()
	s.registerRoutes()

	return s, nil
}

// Handler returns the router wrapped in CORS handling.
func (s *Service) Handler() http.Handler {
	return middleware.NewCORS(s.corsOrigins)(s.Router())
}

// statistics returns runtime statistics for the /info endpoint.
func (s *Service) statistics() map[string]any {
	info, err := s.orchestrator.ContractInfo()
	contractID := ""
	if err == nil {
		contractID = string(info.ContractID)
	}
	return map[string]any{
		"token_id":        string(s.orchestrator.Config().TokenID),
		"contract_id":     contractID,
		"currency":        s.valuator.Currency(),
		"transfers":       s.transfers.Load(),
		"not_recorded":    s.notRecorded.Load(),
		"mirror_failures": s.mirrorFailures.Load(),
		"admin_auth":      s.adminAuth != nil,
	}
}
