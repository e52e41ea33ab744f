package bot

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/rajeshboy669/linxbot/core/config"
	coredatabase "github.com/rajeshboy669/linxbot/core/database"
)

// LinxConfig points at the monetized-link service.
type LinxConfig struct {
	// APIURL is the shortening endpoint, e.g. https://linxshort.me/api.
	APIURL string `yaml:"api_url" envconfig:"LINX_API_URL"`
	// BalanceURL serves earnings statistics; optional, /balance is
	// disabled when empty.
	BalanceURL string `yaml:"balance_url" envconfig:"LINX_BALANCE_URL"`
	// PayoutURL is the base for /methods and /submit.
	PayoutURL      string `yaml:"payout_url" envconfig:"LINX_PAYOUT_URL"`
	SignupURL      string `yaml:"signup_url" envconfig:"LINX_SIGNUP_URL"`
	SupportContact string `yaml:"support_contact" envconfig:"LINX_SUPPORT_CONTACT"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"LINX_TIMEOUT_SECONDS"`
}

// HealthConfig configures the liveness listener.
type HealthConfig struct {
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
}

// Config aggregates the reusable core configuration with the
// application's own sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Linx     LinxConfig          `yaml:"linx"`
	Health   HealthConfig        `yaml:"health"`
}

// CoreConfig exposes the embedded core configuration for the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads configuration from a YAML file and environment
// variables, then validates it.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Linx.APIURL) == "" {
		return fmt.Errorf("linx.api_url is required")
	}
	if strings.TrimSpace(cfg.Linx.PayoutURL) == "" {
		return fmt.Errorf("linx.payout_url is required")
	}
	if cfg.Linx.TimeoutSeconds < 0 {
		return fmt.Errorf("linx.timeout_seconds must be >= 0")
	}
	if cfg.Linx.TimeoutSeconds == 0 {
		cfg.Linx.TimeoutSeconds = 15
	}
	if strings.TrimSpace(cfg.Health.Listen) == "" {
		cfg.Health.Listen = ":8000"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 5
	}
	return nil
}
