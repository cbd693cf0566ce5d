package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/quantlab/meanrev/internal/core"
)

type Config struct {
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Data       DataConfig                `mapstructure:"data"`
	Output     OutputConfig              `mapstructure:"output"`
	Log        LogConfig                 `mapstructure:"log"`
}

// BacktestConfig holds the broker-side run parameters.
type BacktestConfig struct {
	InitialCash    float64 `mapstructure:"initial_cash"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	SlippageRate   float64 `mapstructure:"slippage_rate"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

// DataConfig selects the bar source.
type DataConfig struct {
	Type       string `mapstructure:"type"` // "csv" or "api"
	Path       string `mapstructure:"path"` // For csv
	URL        string `mapstructure:"url"`  // For api
	AuthHeader string `mapstructure:"auth_header"`
}

// OutputConfig selects the result sink.
type OutputConfig struct {
	Type   string   `mapstructure:"type"` // "localfs", "s3" or "sqlite"
	Path   string   `mapstructure:"path"` // For localfs
	DBPath string   `mapstructure:"db_path"` // For sqlite
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialCash:    30000,
			CommissionRate: 0.0003,
			SlippageRate:   0.001,
		},
		Data: DataConfig{
			Type: "csv",
		},
		Output: OutputConfig{
			Type: "localfs",
			Path: "results",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Backtest.InitialCash <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_cash must be positive, got %f", c.Backtest.InitialCash))
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission_rate must be in [0, 1), got %f", c.Backtest.CommissionRate))
	}
	if c.Backtest.SlippageRate < 0 || c.Backtest.SlippageRate >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage_rate must be in [0, 1), got %f", c.Backtest.SlippageRate))
	}

	switch c.Data.Type {
	case "csv":
		if c.Data.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data path required when type is csv"))
		}
	case "api":
		if c.Data.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("data url required when type is api"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data type %q", c.Data.Type))
	}

	switch c.Output.Type {
	case "localfs":
		if c.Output.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("output path required when type is localfs"))
		}
	case "s3":
		if c.Output.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when type is s3"))
		}
	case "sqlite":
		if c.Output.DBPath == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("db_path required when type is sqlite"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown output type %q", c.Output.Type))
	}

	return nil
}
