package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ACCOUNT_ID", "0.0.5492800")
	t.Setenv("PRIVATE_KEY", "302e020100300506032b657004220420deadbeef")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if cfg.RateCacheTTL != 5*time.Minute {
		t.Errorf("RateCacheTTL = %v, want 5m", cfg.RateCacheTTL)
	}
	if cfg.Token != DefaultTokenConfig() {
		t.Errorf("Token = %+v, want defaults", cfg.Token)
	}
}

func TestLoad_RequiresOperator(t *testing.T) {
	t.Setenv("ACCOUNT_ID", "")
	t.Setenv("PRIVATE_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without operator credentials")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_DRIVER", "mongodb")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadTokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.yaml")
	data := []byte("name: Solar\nsymbol: SOL\ninitial_supply: 500\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	token, err := LoadTokenConfig(path)
	if err != nil {
		t.Fatalf("LoadTokenConfig() error = %v", err)
	}
	if token.Name != "Solar" || token.Symbol != "SOL" || token.InitialSupply != 500 {
		t.Errorf("token = %+v", token)
	}
	if token.Decimals != 2 {
		t.Errorf("Decimals = %d, want default 2", token.Decimals)
	}
}

func TestSplitAndTrimCSV(t *testing.T) {
	got := SplitAndTrimCSV(" http://a.io, ,http://b.io ")
	if len(got) != 2 || got[0] != "http://a.io" || got[1] != "http://b.io" {
		t.Errorf("SplitAndTrimCSV() = %v", got)
	}
}
