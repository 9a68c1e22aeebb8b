package config

import (
	"fmt"
	"time"

	redisclient "github.com/mtnwallet/tracker/internal/infra/redis"
	"github.com/mtnwallet/tracker/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Node      NodeConfig         `yaml:"node"`
	Contracts ContractsConfig    `yaml:"contracts"`
	Wallet    WalletConfig       `yaml:"wallet"`
	Rates     RatesConfig        `yaml:"rates"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings for health and metrics endpoints.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NodeConfig holds the Ethereum node connection settings. The URL must be a
// websocket endpoint since the tracker subscribes to new block headers.
type NodeConfig struct {
	URL string `yaml:"url"`
}

// ContractsConfig holds the protocol contract addresses, read-only lookups
// keyed by name.
type ContractsConfig struct {
	Auction   string `yaml:"auction"`
	Converter string `yaml:"converter"`
	Token     string `yaml:"token"`
}

// WalletConfig holds the tracked wallet settings.
type WalletConfig struct {
	// Address is the primary wallet address presented by the aggregation view.
	Address string `yaml:"address"`
}

// RatesConfig holds fiat rate provider settings.
type RatesConfig struct {
	URL             string        `yaml:"url"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("1m", "30s");
// yaml.v2 only decodes integers into time.Duration on its own.
func (r *RatesConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		URL             string `yaml:"url"`
		RefreshInterval string `yaml:"refresh_interval"`
		CacheTTL        string `yaml:"cache_ttl"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	r.URL = raw.URL
	if raw.RefreshInterval != "" {
		d, err := time.ParseDuration(raw.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid rates.refresh_interval: %w", err)
		}
		r.RefreshInterval = d
	}
	if raw.CacheTTL != "" {
		d, err := time.ParseDuration(raw.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid rates.cache_ttl: %w", err)
		}
		r.CacheTTL = d
	}
	return nil
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
