// Package config loads service configuration from the environment and an
// optional YAML token definition.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Field tags follow envdecode syntax.
type Config struct {
	Port      string `env:"PORT,default=5000"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	// Ledger
	Network           string `env:"HEDERA_NETWORK,default=testnet"`
	OperatorAccountID string `env:"ACCOUNT_ID"`
	OperatorKey       string `env:"PRIVATE_KEY"`
	TokenID           string `env:"TOKEN_ID,default=0.0.5611505"`
	TokenSolidityAddr string `env:"TOKEN_SOLIDITY_ADDRESS,default=0x0000000000000000000000000000000000559ff1"`

	// Contract
	ContractID     string `env:"CONTRACT_ID"`
	DeployContract bool   `env:"DEPLOY_CONTRACT,default=false"`
	SolcPath       string `env:"SOLC_PATH,default=solc"`
	ContractSource string `env:"CONTRACT_SOURCE,default=./TransactionHandler.sol"`
	ArtifactDir    string `env:"ARTIFACT_DIR,default=."`

	// Persistence
	DatabaseDriver string `env:"DATABASE_DRIVER,default=sqlite3"`
	DatabaseURL    string `env:"DATABASE_URL,default=file:greeno.db?_journal_mode=WAL"`

	// Exchange rates
	RedisURL          string        `env:"REDIS_URL"`
	HbarPriceURL      string        `env:"HBAR_PRICE_URL,default=https://api.coingecko.com/api/v3/simple/price?ids=hedera-hashgraph&vs_currencies=usd"`
	FiatRatesURL      string        `env:"FIAT_RATES_URL,default=https://api.exchangerate-api.com/v4/latest/USD"`
	FiatCurrency      string        `env:"FIAT_CURRENCY,default=TND"`
	RateCacheTTL      time.Duration `env:"RATE_CACHE_TTL,default=5m"`
	RateRefreshSpec   string        `env:"RATE_REFRESH_SCHEDULE"`
	OracleHTTPTimeout time.Duration `env:"ORACLE_HTTP_TIMEOUT,default=10s"`
	OracleRetries     int           `env:"ORACLE_RETRIES,default=2"`
	OracleBreakerTrip int           `env:"ORACLE_BREAKER_THRESHOLD,default=5"`

	// HTTP
	CORSOrigins    string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	RateLimitRPS   int    `env:"RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int    `env:"RATE_LIMIT_BURST,default=40"`
	AdminJWTSecret string `env:"ADMIN_JWT_SECRET"`

	TokenConfigFile string `env:"TOKEN_CONFIG_FILE"`
	Token           TokenConfig
}

// TokenConfig holds the fixed parameters used by the create-token action.
type TokenConfig struct {
	Name          string `yaml:"name"`
	Symbol        string `yaml:"symbol"`
	Decimals      uint   `yaml:"decimals"`
	InitialSupply uint64 `yaml:"initial_supply"`
}

// DefaultTokenConfig returns the Greeno token definition.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Name:          "Greeno",
		Symbol:        "GRE",
		Decimals:      2,
		InitialSupply: 1000000,
	}
}

// Load reads an optional .env file, decodes the environment and loads the
// token definition.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg.Token = DefaultTokenConfig()
	if cfg.TokenConfigFile != "" {
		token, err := LoadTokenConfig(cfg.TokenConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Token = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadTokenConfig reads a YAML token definition; missing fields keep defaults.
func LoadTokenConfig(path string) (TokenConfig, error) {
	token := DefaultTokenConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return token, fmt.Errorf("failed to read token config: %w", err)
	}
	if err := yaml.Unmarshal(data, &token); err != nil {
		return token, fmt.Errorf("failed to parse token config: %w", err)
	}
	if strings.TrimSpace(token.Symbol) == "" || strings.TrimSpace(token.Name) == "" {
		return token, fmt.Errorf("token config %s: name and symbol are required", path)
	}
	return token, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.OperatorAccountID == "" || c.OperatorKey == "" {
		return fmt.Errorf("ACCOUNT_ID and PRIVATE_KEY are required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	return nil
}

// AllowedOrigins splits CORSOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	return SplitAndTrimCSV(c.CORSOrigins)
}

// SplitAndTrimCSV splits raw on commas and drops empty entries.
func SplitAndTrimCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
