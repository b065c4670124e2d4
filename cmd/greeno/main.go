// Package main runs the Greeno token service.
// All settings come from the environment (optionally a .env file).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/config"
	"github.com/R3E-Network/greeno_layer/internal/contract"
	"github.com/R3E-Network/greeno_layer/internal/database"
	"github.com/R3E-Network/greeno_layer/internal/httputil"
	"github.com/R3E-Network/greeno_layer/internal/logging"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
	"github.com/R3E-Network/greeno_layer/internal/middleware"
	"github.com/R3E-Network/greeno_layer/internal/oracle"
	commonservice "github.com/R3E-Network/greeno_layer/services/common/service"
	"github.com/R3E-Network/greeno_layer/services/greeno"
	greenomarble "github.com/R3E-Network/greeno_layer/services/greeno/marble"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(greenomarble.ServiceID, cfg.LogLevel, cfg.LogFormat)
	m := metrics.New()

	client, err := chain.NewHederaClient(chain.Config{
		Network:     cfg.Network,
		OperatorID:  cfg.OperatorAccountID,
		OperatorKey: cfg.OperatorKey,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Hedera client")
	}
	defer client.Close()

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()
	store := greeno.NewSQLStore(database.NewTransactionRepository(db))

	probes := []commonservice.Probe{
		{Name: "database", Check: db.PingContext, Critical: true},
	}
	var workers []func(context.Context)

	// Exchange rates
	retry := httputil.DefaultRetryPolicy()
	retry.MaxRetries = cfg.OracleRetries
	var rates oracle.PriceOracle = oracle.NewHTTPOracle(oracle.HTTPConfig{
		HbarURL: cfg.HbarPriceURL,
		FiatURL: cfg.FiatRatesURL,
		Client: httputil.NewClient(httputil.ClientConfig{
			Timeout: cfg.OracleHTTPTimeout,
			Retry:   retry,
			Breaker: httputil.NewBreaker(cfg.OracleBreakerTrip, 30*time.Second),
		}),
		Metrics: m,
	})
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		cached := oracle.NewCachedOracle(rates, rdb, cfg.RateCacheTTL, logger, m)
		rates = cached
		probes = append(probes, commonservice.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})

		if cfg.RateRefreshSpec != "" {
			refresher, err := oracle.NewRefresher(cached, cfg.FiatCurrency, cfg.RateRefreshSpec, logger)
			if err != nil {
				logger.WithError(err).Fatal("Invalid RATE_REFRESH_SCHEDULE")
			}
			workers = append(workers, refresher.Run)
		}
	}

	contractID := chain.ContractID(cfg.ContractID)
	if contractID == "" && cfg.DeployContract {
		contractID = deployContract(ctx, cfg, client, logger)
	}
	if contractID == "" {
		logger.Warn("No purchase ledger contract configured; purchases and contract history are disabled")
	}

	orch := greeno.NewOrchestrator(client, greeno.Config{
		TokenID:    chain.TokenID(cfg.TokenID),
		ContractID: contractID,
	}, logger, m)

	svc, err := greenomarble.New(greenomarble.Config{
		Logger:       logger,
		Metrics:      m,
		Client:       client,
		Orchestrator: orch,
		Store:        store,
		Rates:        rates,
		Currency:     cfg.FiatCurrency,
		TokenSpec: chain.TokenSpec{
			Name:          cfg.Token.Name,
			Symbol:        cfg.Token.Symbol,
			Decimals:      cfg.Token.Decimals,
			InitialSupply: cfg.Token.InitialSupply,
		},
		AdminSecret:    []byte(cfg.AdminJWTSecret),
		CORSOrigins:    cfg.AllowedOrigins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Probes:         probes,
		Workers:        workers,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create service")
	}

	if err := svc.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start service")
	}

	// /metrics stays outside the service router so scrapes are not logged or rate limited.
	root := mux.NewRouter()
	root.Handle("/metrics", middleware.NewTracingMiddleware().Handler(m.Handler())).Methods(http.MethodGet)
	root.PathPrefix("/").Handler(svc.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Greeno service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Shutdown error")
	}
	if err := svc.Stop(); err != nil {
		logger.WithError(err).Warn("Service stop error")
	}
	logger.Info("Service stopped")
}

// deployContract compiles (or loads cached bytecode for) the purchase ledger
// and creates it on the ledger.
func deployContract(ctx context.Context, cfg *config.Config, client chain.Client, logger *logging.Logger) chain.ContractID {
	cache, err := contract.NewFileCache(cfg.ArtifactDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open contract artifact directory")
	}
	deployer := &contract.Deployer{
		Client: client,
		Loader: &contract.Loader{
			Compiler:     contract.NewSolcCompiler(cfg.SolcPath),
			Cache:        cache,
			SourcePath:   cfg.ContractSource,
			ContractName: contract.DefaultContractName,
			Logger:       logger,
		},
		Token:        chain.TokenID(cfg.TokenID),
		TokenAddress: cfg.TokenSolidityAddr,
		Logger:       logger,
	}
	id, err := deployer.Deploy(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to deploy purchase ledger contract")
	}
	logger.WithField("contract_id", id).Info("Purchase ledger contract deployed")
	return id
}
