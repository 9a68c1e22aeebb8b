package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Rates.RefreshInterval == 0 {
		cfg.Rates.RefreshInterval = time.Minute
	}
	if cfg.Rates.CacheTTL == 0 {
		cfg.Rates.CacheTTL = 5 * time.Minute
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the settings the tracker cannot run without are present.
func (c *AppConfig) Validate() error {
	if c.Node.URL == "" {
		return fmt.Errorf("node.url is required")
	}
	if c.Contracts.Auction == "" {
		return fmt.Errorf("contracts.auction is required")
	}
	if c.Contracts.Converter == "" {
		return fmt.Errorf("contracts.converter is required")
	}
	if c.Contracts.Token == "" {
		return fmt.Errorf("contracts.token is required")
	}
	if c.Wallet.Address == "" {
		return fmt.Errorf("wallet.address is required")
	}
	return nil
}
