package app

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	InventoryUnderflow string `envconfig:"INVENTORY_UNDERFLOW" default:"clamp" validate:"oneof=clamp reject"`
	IDStrategy         string `envconfig:"ID_STRATEGY" default:"sequence" validate:"oneof=sequence uuid"`
	AuditSink          string `envconfig:"AUDIT_SINK" default:"memory" validate:"oneof=memory log"`

	DemoSeed    bool `envconfig:"DEMO_SEED" default:"true"`
	MetricsDump bool `envconfig:"METRICS_DUMP" default:"false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := shared.NewValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
