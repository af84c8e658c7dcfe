// Package config loads cintel configuration from file, environment, and
// defaults.
//
// Precedence, highest first: command-line flags (bound by the CLI),
// CINTEL_* environment variables, the config file, built-in defaults.
// The config file is cintel.yaml, looked up in the working directory and
// then in ~/.config/cintel/.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// CINTEL_LEDGER_BACKEND=redis.
const EnvPrefix = "CINTEL"

// Config is the full cintel configuration tree.
type Config struct {
	// Actor is the default acting identity. Overridden by --actor and
	// CINTEL_ACTOR; see internal/identity for the resolution order.
	Actor string `mapstructure:"actor"`

	// Namespace prefixes every ledger key.
	Namespace string `mapstructure:"namespace"`

	// PolicyFile points at a TOML transition policy. Empty keeps the
	// built-in default policy.
	PolicyFile string `mapstructure:"policy_file"`

	Ledger LedgerConfig `mapstructure:"ledger"`
	Log    LogConfig    `mapstructure:"log"`
	Daemon DaemonConfig `mapstructure:"daemon"`

	// Sealer selects the encryption provider: "exec:<command>" pipes
	// plaintext through an external tool, "passthrough" stores it as-is
	// (development only).
	Sealer string `mapstructure:"sealer"`

	// CachePath is the local SQLite read-view mirror. Empty disables
	// the cache.
	CachePath string `mapstructure:"cache_path"`
}

// LedgerConfig selects and parameterizes the ledger backend.
type LedgerConfig struct {
	// Backend is one of memory, redis, sqlite, etcd.
	Backend string `mapstructure:"backend"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	SQLitePath string `mapstructure:"sqlite_path"`

	EtcdEndpoints   []string      `mapstructure:"etcd_endpoints"`
	EtcdDialTimeout time.Duration `mapstructure:"etcd_dial_timeout"`

	// RetryAttempts bounds re-attempts on transient failures.
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBase     time.Duration `mapstructure:"retry_base"`
	RetryMax      time.Duration `mapstructure:"retry_max"`
}

// LogConfig controls the optional rotating file sink. Logs always go to
// stderr; when File is set they are duplicated into the rotated file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DaemonConfig controls the ingest daemon and dashboard.
type DaemonConfig struct {
	// IngestDir is watched for dropped intel files (.json/.yaml).
	IngestDir string `mapstructure:"ingest_dir"`

	// ArchiveDir receives processed ingest files. Defaults to
	// <ingest_dir>/processed.
	ArchiveDir string `mapstructure:"archive_dir"`

	// DashboardPort is the HTTP/WebSocket listen port. 0 disables the
	// dashboard.
	DashboardPort int `mapstructure:"dashboard_port"`

	// RefreshInterval is how often the daemon rebuilds the read view.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// DebounceInterval batches rapid ingest file events together.
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`

	// NATSURL enables event fanout when set, e.g. nats://localhost:4222.
	NATSURL string `mapstructure:"nats_url"`

	// NATSSubject is the subject record events publish to.
	NATSSubject string `mapstructure:"nats_subject"`
}

// setDefaults registers every default value with viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "cintel")
	v.SetDefault("sealer", "passthrough")
	v.SetDefault("ledger.backend", "memory")
	v.SetDefault("ledger.redis_addr", "localhost:6379")
	v.SetDefault("ledger.etcd_dial_timeout", 5*time.Second)
	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_base", 100*time.Millisecond)
	v.SetDefault("ledger.retry_max", 2*time.Second)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("daemon.dashboard_port", 8787)
	v.SetDefault("daemon.refresh_interval", 15*time.Second)
	v.SetDefault("daemon.debounce_interval", 250*time.Millisecond)
	v.SetDefault("daemon.nats_subject", "cintel.records")
}

// Load reads configuration from the given file, or from the default
// search path when path is empty. A missing default config file is not
// an error; an unreadable explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("cintel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "cintel"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LedgerConfig converts the config tree into the ledger package's
// Config value.
func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		Backend: ledger.Type(c.Ledger.Backend),
		Redis: ledger.RedisConfig{
			Addr:     c.Ledger.RedisAddr,
			Password: c.Ledger.RedisPassword,
			DB:       c.Ledger.RedisDB,
		},
		SQLite: ledger.SQLiteConfig{
			Path: c.Ledger.SQLitePath,
		},
		Etcd: ledger.EtcdConfig{
			Endpoints:   c.Ledger.EtcdEndpoints,
			DialTimeout: c.Ledger.EtcdDialTimeout,
		},
	}
}

// RetryPolicy converts the configured retry bounds into a ledger policy.
func (c *Config) RetryPolicy() ledger.RetryPolicy {
	return ledger.RetryPolicy{
		MaxAttempts: c.Ledger.RetryAttempts,
		BaseDelay:   c.Ledger.RetryBase,
		MaxDelay:    c.Ledger.RetryMax,
	}
}

// NewLogger builds a component logger writing to stderr and, when a log
// file is configured, to a size-rotated file as well.
func (c *Config) NewLogger(prefix string) *log.Logger {
	var sink io.Writer = os.Stderr
	if c.Log.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   c.Log.File,
			MaxSize:    c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAge:     c.Log.MaxAgeDays,
		}
		sink = io.MultiWriter(os.Stderr, rotated)
	}
	return log.New(sink, prefix, log.LstdFlags)
}
