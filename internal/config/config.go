package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Routing   RoutingConfig   `yaml:"routing"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DatabaseConfig configures the optional routing-decision journal.
// An empty host disables the journal entirely.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig configures the optional shared quota ledger. An empty
// address keeps quota accounting in process memory.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// RoutingConfig tunes the failover state machine and ban policy.
type RoutingConfig struct {
	// MaxModelAttempts bounds how many distinct models one request may
	// try before the router reports exhaustion.
	MaxModelAttempts int `yaml:"max_model_attempts"`

	// DispatchTimeout is the per-attempt deadline for a provider call.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// QuotaBanTTL is the blacklist duration after a provider-reported
	// quota error; it self-resolves, so the ban is short.
	QuotaBanTTL time.Duration `yaml:"quota_ban_ttl"`

	// AuthBanTTL is the blacklist duration after an auth error, which
	// will not self-resolve and so bans for hours.
	AuthBanTTL time.Duration `yaml:"auth_ban_ttl"`

	// SweepInterval is how often expired blacklist entries are purged.
	// Zero disables the background sweeper (expiry stays lazy).
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            5432,
			Name:            "router",
			User:            "router",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:       0,
			PoolSize: 50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Routing: RoutingConfig{
			MaxModelAttempts: 3,
			DispatchTimeout:  60 * time.Second,
			QuotaBanTTL:      5 * time.Minute,
			AuthBanTTL:       12 * time.Hour,
			SweepInterval:    time.Minute,
		},
	}
}
