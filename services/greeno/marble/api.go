package marble

import (
	"net/http"

	"github.com/R3E-Network/greeno_layer/internal/middleware"
)

// =============================================================================
// API Routes
// =============================================================================

func (s *Service) registerMiddleware() {
	router := s.Router()
	router.Use(middleware.LoggingMiddleware(s.logger))
	router.Use(middleware.MetricsMiddleware(ServiceID, s.metrics))
	if s.limiter != nil {
		router.Use(s.limiter.Handler)
	}
}

// registerRoutes registers service-specific HTTP routes.
// /health and /info are registered by BaseService.RegisterStandardRoutes.
func (s *Service) registerRoutes() {
	router := s.Router()

	router.Handle("/createToken", s.adminOnly(s.handleCreateToken)).Methods(http.MethodPost)
	router.Handle("/getTokenSupply", s.adminOnly(s.handleGetTokenSupply)).Methods(http.MethodPost)
	router.Handle("/mintTokens", s.adminOnly(s.handleMintTokens)).Methods(http.MethodPost)
	router.Handle("/burnTokens", s.adminOnly(s.handleBurnTokens)).Methods(http.MethodPost)
	router.Handle("/deleteToken", s.adminOnly(s.handleDeleteToken)).Methods(http.MethodPost)

	router.HandleFunc("/connectProfile", s.handleConnectProfile).Methods(http.MethodPost)
	router.HandleFunc("/tokenBalance", s.handleTokenBalance).Methods(http.MethodGet)
	router.HandleFunc("/transferTokens", s.handleTransferTokens).Methods(http.MethodPost)
	router.HandleFunc("/contractTransactions", s.handleContractTransactions).Methods(http.MethodGet)
	router.HandleFunc("/contractInfo", s.handleContractInfo).Methods(http.MethodGet)
	router.HandleFunc("/fetchTransactions/{userId}", s.handleFetchTransactions).Methods(http.MethodGet)
	router.HandleFunc("/balance/{accountId}", s.handleBalance).Methods(http.MethodGet)
}

// adminOnly requires an admin bearer token when a secret is configured.
func (s *Service) adminOnly(h http.HandlerFunc) http.Handler {
	if s.adminAuth == nil {
		return h
	}
	return s.adminAuth.Handler(h)
}
