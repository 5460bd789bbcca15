package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper gives each test a fresh global viper with defaults registered.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify monitor defaults
	if cfg.Monitor.Interval != 2500*time.Millisecond {
		t.Errorf("Monitor.Interval = %v, want 2.5s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.StaleAfter != 10*time.Second {
		t.Errorf("Monitor.StaleAfter = %v, want 10s", cfg.Monitor.StaleAfter)
	}
	if cfg.Monitor.DegradedHealthThreshold != 40 {
		t.Errorf("Monitor.DegradedHealthThreshold = %v, want 40", cfg.Monitor.DegradedHealthThreshold)
	}
	if !cfg.Monitor.NeverStop {
		t.Error("Monitor.NeverStop should be true by default")
	}

	// Verify recovery defaults
	if cfg.Recovery.MinCandidateHealth != 75 {
		t.Errorf("Recovery.MinCandidateHealth = %v, want 75", cfg.Recovery.MinCandidateHealth)
	}
	if cfg.Recovery.MaxCandidates != 5 {
		t.Errorf("Recovery.MaxCandidates = %d, want 5", cfg.Recovery.MaxCandidates)
	}
	if cfg.Recovery.MigrationDelay != 1200*time.Millisecond {
		t.Errorf("Recovery.MigrationDelay = %v, want 1.2s", cfg.Recovery.MigrationDelay)
	}

	// Verify workflow defaults
	if cfg.Workflow.StepInterval != 500*time.Millisecond {
		t.Errorf("Workflow.StepInterval = %v, want 500ms", cfg.Workflow.StepInterval)
	}
	if cfg.Workflow.CompletionDelay != 3*time.Second {
		t.Errorf("Workflow.CompletionDelay = %v, want 3s", cfg.Workflow.CompletionDelay)
	}

	// Verify the remaining sections
	if cfg.Decision.Backend != "rule" {
		t.Errorf("Decision.Backend = %q, want %q", cfg.Decision.Backend, "rule")
	}
	if cfg.Fleet.Agents != 50 {
		t.Errorf("Fleet.Agents = %d, want 50", cfg.Fleet.Agents)
	}
	if cfg.Fleet.EventCapacity != 50 {
		t.Errorf("Fleet.EventCapacity = %d, want 50", cfg.Fleet.EventCapacity)
	}
	if cfg.Relay.Enabled {
		t.Error("Relay.Enabled should be false by default")
	}
	if cfg.Relay.Encoding != "cbor" {
		t.Errorf("Relay.Encoding = %q, want %q", cfg.Relay.Encoding, "cbor")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		result := ConfigDir()
		expected := "/custom/config/neverstop"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("falls back to ~/.config when XDG not set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		result := ConfigDir()
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "neverstop")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	result := ConfigFile()
	expected := "/custom/config/neverstop/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestGet(t *testing.T) {
	resetViper(t)

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Monitor.Interval != 2500*time.Millisecond {
		t.Errorf("Get().Monitor.Interval = %v, want 2.5s", cfg.Monitor.Interval)
	}
}

func TestGet_InvalidFallsBackToDefaults(t *testing.T) {
	resetViper(t)
	viper.Set("recovery.max_candidates", 0)

	cfg := Get()
	if cfg.Recovery.MaxCandidates != 5 {
		t.Errorf("Get().Recovery.MaxCandidates = %d, want default 5", cfg.Recovery.MaxCandidates)
	}
}

func TestLoad_FromFile(t *testing.T) {
	resetViper(t)
	viper.SetConfigFile(writeConfig(t, `
monitor:
  interval: 1s
  stale_after: 4s
  never_stop: false
recovery:
  migration_delay: 250ms
decision:
  backend: anthropic
  model: test-model
fleet:
  agents: 12
  seed: 7
relay:
  enabled: true
  encoding: json
`))
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Monitor.Interval != time.Second {
		t.Errorf("Monitor.Interval = %v, want 1s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.StaleAfter != 4*time.Second {
		t.Errorf("Monitor.StaleAfter = %v, want 4s", cfg.Monitor.StaleAfter)
	}
	if cfg.Monitor.NeverStop {
		t.Error("Monitor.NeverStop should be false from file")
	}
	if cfg.Recovery.MigrationDelay != 250*time.Millisecond {
		t.Errorf("Recovery.MigrationDelay = %v, want 250ms", cfg.Recovery.MigrationDelay)
	}
	if cfg.Fleet.Agents != 12 || cfg.Fleet.Seed != 7 {
		t.Errorf("Fleet = %+v, want 12 agents seed 7", cfg.Fleet)
	}
	if !cfg.Relay.Enabled || cfg.Relay.Encoding != "json" {
		t.Errorf("Relay = %+v, want enabled json", cfg.Relay)
	}

	// Unset keys keep their defaults
	if cfg.Recovery.MaxCandidates != 5 {
		t.Errorf("Recovery.MaxCandidates = %d, want default 5", cfg.Recovery.MaxCandidates)
	}
	if cfg.Relay.Subject != "neverstop.resilience" {
		t.Errorf("Relay.Subject = %q, want default", cfg.Relay.Subject)
	}

	settings := cfg.DecisionSettings()
	if settings.Backend != "anthropic" || settings.Model != "test-model" {
		t.Errorf("DecisionSettings() = %+v", settings)
	}
	if settings.Timeout != cfg.Recovery.DecisionTimeout {
		t.Errorf("DecisionSettings().Timeout = %v, want %v", settings.Timeout, cfg.Recovery.DecisionTimeout)
	}
}

func TestLoad_Invalid(t *testing.T) {
	resetViper(t)
	viper.SetConfigFile(writeConfig(t, "monitor:\n  degraded_health_threshold: 140\nlogging:\n  level: loud\n"))
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject invalid values")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("Load() returned %d errors, want 2: %v", len(verrs), verrs)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	resetViper(t)
	BindEnv()
	t.Setenv("NEVERSTOP_MONITOR_INTERVAL", "750ms")
	t.Setenv("NEVERSTOP_DECISION_BACKEND", "gemini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Monitor.Interval != 750*time.Millisecond {
		t.Errorf("Monitor.Interval = %v, want 750ms", cfg.Monitor.Interval)
	}
	if cfg.Decision.Backend != "gemini" {
		t.Errorf("Decision.Backend = %q, want gemini", cfg.Decision.Backend)
	}
}

func TestConfig_LoggerOptions(t *testing.T) {
	cfg := Default()
	cfg.Logging.Dir = "/var/log/neverstop"
	cfg.Logging.Level = "debug"

	opts := cfg.LoggerOptions()
	if opts.Dir != "/var/log/neverstop" || opts.Level != "debug" {
		t.Errorf("LoggerOptions() = %+v", opts)
	}
	if opts.Rotation.MaxSizeMB != 10 || opts.Rotation.MaxBackups != 3 {
		t.Errorf("LoggerOptions().Rotation = %+v, want 10MB x3", opts.Rotation)
	}
}

func TestWatch(t *testing.T) {
	resetViper(t)
	path := writeConfig(t, "monitor:\n  never_stop: true\n")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	var (
		mu      sync.Mutex
		applied []*Config
	)
	Watch(nil, func(cfg *Config) {
		mu.Lock()
		applied = append(applied, cfg)
		mu.Unlock()
	})

	last := func() *Config {
		mu.Lock()
		defer mu.Unlock()
		if len(applied) == 0 {
			return nil
		}
		return applied[len(applied)-1]
	}

	if err := os.WriteFile(path, []byte("monitor:\n  never_stop: false\n  stale_after: 3s\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if cfg := last(); cfg != nil && !cfg.Monitor.NeverStop {
			if cfg.Monitor.StaleAfter != 3*time.Second {
				t.Errorf("reloaded StaleAfter = %v, want 3s", cfg.Monitor.StaleAfter)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("configuration change was not applied")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
