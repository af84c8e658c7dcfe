package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no stray cintel.yaml is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Namespace != "cintel" {
		t.Errorf("Expected default namespace cintel, got %s", cfg.Namespace)
	}
	if cfg.Ledger.Backend != "memory" {
		t.Errorf("Expected default backend memory, got %s", cfg.Ledger.Backend)
	}
	if cfg.Ledger.RetryAttempts != 3 {
		t.Errorf("Expected 3 retry attempts, got %d", cfg.Ledger.RetryAttempts)
	}
	if cfg.Daemon.RefreshInterval != 15*time.Second {
		t.Errorf("Expected 15s refresh interval, got %v", cfg.Daemon.RefreshInterval)
	}
	if cfg.Sealer != "passthrough" {
		t.Errorf("Expected passthrough sealer default, got %s", cfg.Sealer)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cintel.yaml")
	content := `
actor: agencyA
namespace: sharedops
ledger:
  backend: redis
  redis_addr: redis.internal:6379
daemon:
  dashboard_port: 9100
  refresh_interval: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Actor != "agencyA" {
		t.Errorf("Expected actor agencyA, got %s", cfg.Actor)
	}
	if cfg.Namespace != "sharedops" {
		t.Errorf("Expected namespace sharedops, got %s", cfg.Namespace)
	}
	if cfg.Ledger.Backend != "redis" {
		t.Errorf("Expected redis backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Ledger.RedisAddr != "redis.internal:6379" {
		t.Errorf("Expected redis address from file, got %s", cfg.Ledger.RedisAddr)
	}
	if cfg.Daemon.DashboardPort != 9100 {
		t.Errorf("Expected dashboard port 9100, got %d", cfg.Daemon.DashboardPort)
	}
	if cfg.Daemon.RefreshInterval != 5*time.Second {
		t.Errorf("Expected 5s refresh interval, got %v", cfg.Daemon.RefreshInterval)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CINTEL_LEDGER_BACKEND", "etcd")
	t.Setenv("CINTEL_NAMESPACE", "envns")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Ledger.Backend != "etcd" {
		t.Errorf("Expected env override backend etcd, got %s", cfg.Ledger.Backend)
	}
	if cfg.Namespace != "envns" {
		t.Errorf("Expected env override namespace envns, got %s", cfg.Namespace)
	}
}

func TestLedgerConfigConversion(t *testing.T) {
	cfg := &Config{
		Ledger: LedgerConfig{
			Backend:         "etcd",
			EtcdEndpoints:   []string{"localhost:2379"},
			EtcdDialTimeout: 2 * time.Second,
		},
	}

	lc := cfg.LedgerConfig()
	if lc.Backend != ledger.TypeEtcd {
		t.Errorf("Expected TypeEtcd, got %s", lc.Backend)
	}
	if len(lc.Etcd.Endpoints) != 1 || lc.Etcd.Endpoints[0] != "localhost:2379" {
		t.Errorf("Endpoints not carried over: %v", lc.Etcd.Endpoints)
	}
}
