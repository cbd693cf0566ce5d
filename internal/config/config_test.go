package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
backtest:
  initial_cash: 50000
  commission_rate: 0.0005

strategies:
  percentile:
    enabled: true
    params:
      lookback_days: 365
      percentile_threshold: 0.1

data:
  type: csv
  path: "data/bars.csv"

output:
  type: sqlite
  db_path: "results.db"
`)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backtest.InitialCash != 50000 {
		t.Errorf("expected initial_cash 50000, got %f", cfg.Backtest.InitialCash)
	}
	// Defaults survive partial override.
	if cfg.Backtest.SlippageRate != 0.001 {
		t.Errorf("expected default slippage 0.001, got %f", cfg.Backtest.SlippageRate)
	}
	if cfg.Output.Type != "sqlite" || cfg.Output.DBPath != "results.db" {
		t.Errorf("output = %+v", cfg.Output)
	}

	strat, ok := cfg.Strategies["percentile"]
	if !ok || !strat.Enabled {
		t.Fatalf("strategies = %+v", cfg.Strategies)
	}
	if strat.Params["lookback_days"] != 365 {
		t.Errorf("lookback_days = %v", strat.Params["lookback_days"])
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backtest.InitialCash != 30000 {
		t.Errorf("expected default initial_cash 30000, got %f", cfg.Backtest.InitialCash)
	}
	if cfg.Output.Type != "localfs" {
		t.Errorf("expected default output localfs, got %s", cfg.Output.Type)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Data.Path = "bars.csv"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"zero cash", func(c *Config) { c.Backtest.InitialCash = 0 }, true},
		{"negative cash", func(c *Config) { c.Backtest.InitialCash = -100 }, true},
		{"commission too high", func(c *Config) { c.Backtest.CommissionRate = 1 }, true},
		{"negative slippage", func(c *Config) { c.Backtest.SlippageRate = -0.001 }, true},
		{"csv without path", func(c *Config) { c.Data.Path = "" }, true},
		{"api without url", func(c *Config) { c.Data = DataConfig{Type: "api"} }, true},
		{"unknown data type", func(c *Config) { c.Data.Type = "ftp" }, true},
		{"s3 without bucket", func(c *Config) { c.Output = OutputConfig{Type: "s3"} }, true},
		{"sqlite without db_path", func(c *Config) { c.Output = OutputConfig{Type: "sqlite"} }, true},
		{"unknown output type", func(c *Config) { c.Output.Type = "kafka" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
