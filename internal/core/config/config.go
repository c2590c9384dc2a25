package config

import (
	"time"

	"github.com/openfit/relay/internal/infra/nutrition"
	redisclient "github.com/openfit/relay/internal/infra/redis"
	"github.com/openfit/relay/internal/infra/storage/postgres"
	"github.com/openfit/relay/internal/infra/storage/sqlite"
	"github.com/openfit/relay/internal/resilience"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Resilience   resilience.Config  `yaml:"resilience"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Storage      StorageConfig      `yaml:"storage"`
	Redis        redisclient.Config `yaml:"redis"`
	Nutrition    nutrition.Config   `yaml:"nutrition"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ConnectivityConfig holds connectivity monitor settings. Any probe
// succeeding counts as online.
type ConnectivityConfig struct {
	ProbeInterval time.Duration     `yaml:"probe_interval"`
	HTTPProbes    []string          `yaml:"http_probes"`
	GRPCProbes    []GRPCProbeConfig `yaml:"grpc_probes"`
}

// GRPCProbeConfig identifies one gRPC health-check target.
type GRPCProbeConfig struct {
	Target  string `yaml:"target"`
	Service string `yaml:"service"`
}

// StorageConfig selects the offline queue backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend"` // sqlite, postgres, redis, memory
	SQLite   sqlite.Config   `yaml:"sqlite"`
	Postgres postgres.Config `yaml:"postgres"`
}
