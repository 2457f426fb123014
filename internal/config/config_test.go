package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("POLICY_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Policy.InitialBalance != 1500 {
		t.Errorf("initial balance = %d, want 1500", cfg.Policy.InitialBalance)
	}
	if cfg.Kafka.Enabled() {
		t.Error("kafka enabled without brokers")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_TX_RETRIES", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.TxRetries != 7 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_PolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	content := "initial_balance = 800\ndefault_closeness = 20\nmax_closeness = 10\nsweep_interval = \"5m\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("POLICY_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted default closeness above max")
	}

	content = "initial_balance = 800\ndefault_closeness = 20\nsweep_interval = \"5m\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Policy.InitialBalance != 800 || cfg.Policy.DefaultCloseness != 20 || cfg.Policy.MaxCloseness != 100 {
		t.Errorf("policy = %+v", cfg.Policy)
	}
	if cfg.Policy.SweepInterval != 5*time.Minute {
		t.Errorf("sweep interval = %v, want 5m", cfg.Policy.SweepInterval)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted unknown driver")
	}
}
