// Package config reads process configuration from the environment and an optional env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"accounting-core/internal/core"
	"accounting-core/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Ledger   LedgerConfig
	OpenAI   OpenAIConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	URL     string
	TestURL string
}

type LedgerConfig struct {
	CompanyCode       string
	CalculationMethod core.CalculationMethod
	BalanceTolerance  decimal.Decimal
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from file (if non-empty and present) and the environment.
// Environment variables win over file values.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
			}
		}
	}
	v.AutomaticEnv()

	v.SetDefault("COMPANY_CODE", "1000")
	v.SetDefault("CALCULATION_METHOD", string(core.Exclusive))
	v.SetDefault("BALANCE_TOLERANCE", "0.01")
	v.SetDefault("OPENAI_MODEL", "gpt-4o")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_OUTPUT", "stderr")

	method, err := core.ParseCalculationMethod(v.GetString("CALCULATION_METHOD"))
	if err != nil {
		return nil, fmt.Errorf("CALCULATION_METHOD: %w", err)
	}
	tolerance, err := decimal.NewFromString(v.GetString("BALANCE_TOLERANCE"))
	if err != nil {
		return nil, fmt.Errorf("BALANCE_TOLERANCE: %w", err)
	}
	if !tolerance.IsPositive() {
		return nil, fmt.Errorf("BALANCE_TOLERANCE must be positive, got %s", tolerance)
	}

	return &Config{
		Database: DatabaseConfig{
			URL:     v.GetString("DATABASE_URL"),
			TestURL: v.GetString("TEST_DATABASE_URL"),
		},
		Ledger: LedgerConfig{
			CompanyCode:       v.GetString("COMPANY_CODE"),
			CalculationMethod: method,
			BalanceTolerance:  tolerance,
		},
		OpenAI: OpenAIConfig{
			APIKey: v.GetString("OPENAI_API_KEY"),
			Model:  v.GetString("OPENAI_MODEL"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
	}, nil
}

// GetLoggerConfig converts the log section for logger.Setup.
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: time.RFC3339,
		Output:     c.Log.Output,
	}
}

// RequireDatabase reports a usable error when a command needs Postgres and none is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return nil
}
