package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/oeoc/neverstop/internal/decision"
	"github.com/oeoc/neverstop/internal/logging"
)

// EnvPrefix is the prefix of environment variable overrides, for example
// NEVERSTOP_MONITOR_INTERVAL.
const EnvPrefix = "NEVERSTOP"

// Config represents the complete neverstop configuration
type Config struct {
	Monitor  MonitorConfig  `mapstructure:"monitor" yaml:"monitor"`
	Recovery RecoveryConfig `mapstructure:"recovery" yaml:"recovery"`
	Workflow WorkflowConfig `mapstructure:"workflow" yaml:"workflow"`
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision"`
	Fleet    FleetConfig    `mapstructure:"fleet" yaml:"fleet"`
	Relay    RelayConfig    `mapstructure:"relay" yaml:"relay"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// MonitorConfig controls the continuity monitor
type MonitorConfig struct {
	// Interval is the scan period (default: 2.5s)
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// StaleAfter is how old a heartbeat may get before the agent is stale (default: 10s)
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
	// DegradedHealthThreshold is the health below which degraded agents are re-balanced (default: 40)
	DegradedHealthThreshold float64 `mapstructure:"degraded_health_threshold" yaml:"degraded_health_threshold"`
	// NeverStop enables autonomous recovery at startup (default: true).
	// It is re-applied on configuration reload.
	NeverStop bool `mapstructure:"never_stop" yaml:"never_stop"`
}

// RecoveryConfig controls the recovery coordinator
type RecoveryConfig struct {
	// MinCandidateHealth is the health a candidate must exceed (default: 75)
	MinCandidateHealth float64 `mapstructure:"min_candidate_health" yaml:"min_candidate_health"`
	// MaxCandidates caps the candidates offered to the decision service (default: 5)
	MaxCandidates int `mapstructure:"max_candidates" yaml:"max_candidates"`
	// MigrationDelay is the simulated state migration time (default: 1.2s)
	MigrationDelay time.Duration `mapstructure:"migration_delay" yaml:"migration_delay"`
	// DecisionTimeout bounds one decision call (default: 15s)
	DecisionTimeout time.Duration `mapstructure:"decision_timeout" yaml:"decision_timeout"`
}

// WorkflowConfig controls the swarm workflow driver
type WorkflowConfig struct {
	StepInterval    time.Duration `mapstructure:"step_interval" yaml:"step_interval"`
	StepIncrement   int           `mapstructure:"step_increment" yaml:"step_increment"`
	CompletionDelay time.Duration `mapstructure:"completion_delay" yaml:"completion_delay"`
	WorkflowID      string        `mapstructure:"workflow_id" yaml:"workflow_id"`
}

// DecisionConfig selects the decision service
type DecisionConfig struct {
	// Backend is one of rule, anthropic, gemini (default: rule)
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Model overrides the backend's default model
	Model string `mapstructure:"model" yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
	// Endpoint overrides the backend's API base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// FleetConfig controls the simulated fleet
type FleetConfig struct {
	// File is an optional YAML fleet definition. Empty means a seeded fleet.
	File string `mapstructure:"file" yaml:"file"`
	// Agents is the size of the seeded fleet (default: 50)
	Agents int `mapstructure:"agents" yaml:"agents"`
	// Seed makes the seeded fleet reproducible. 0 uses the current time.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
	// HeartbeatInterval is how often healthy agents report in. 0 disables heartbeats.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	// EventCapacity bounds the resilience log (default: 50)
	EventCapacity int `mapstructure:"event_capacity" yaml:"event_capacity"`
}

// RelayConfig controls the NATS event relay
type RelayConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	URL      string `mapstructure:"url" yaml:"url"`
	Subject  string `mapstructure:"subject" yaml:"subject"`
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Interval:                2500 * time.Millisecond,
			StaleAfter:              10 * time.Second,
			DegradedHealthThreshold: 40,
			NeverStop:               true,
		},
		Recovery: RecoveryConfig{
			MinCandidateHealth: 75,
			MaxCandidates:      5,
			MigrationDelay:     1200 * time.Millisecond,
			DecisionTimeout:    15 * time.Second,
		},
		Workflow: WorkflowConfig{
			StepInterval:    500 * time.Millisecond,
			StepIncrement:   1,
			CompletionDelay: 3 * time.Second,
			WorkflowID:      "wf-swarm-1",
		},
		Decision: DecisionConfig{
			Backend: decision.BackendRule,
		},
		Fleet: FleetConfig{
			Agents:            50,
			HeartbeatInterval: 2 * time.Second,
			EventCapacity:     50,
		},
		Relay: RelayConfig{
			URL:      "nats://127.0.0.1:4222",
			Subject:  "neverstop.resilience",
			Encoding: "cbor",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Monitor defaults
	viper.SetDefault("monitor.interval", defaults.Monitor.Interval)
	viper.SetDefault("monitor.stale_after", defaults.Monitor.StaleAfter)
	viper.SetDefault("monitor.degraded_health_threshold", defaults.Monitor.DegradedHealthThreshold)
	viper.SetDefault("monitor.never_stop", defaults.Monitor.NeverStop)

	// Recovery defaults
	viper.SetDefault("recovery.min_candidate_health", defaults.Recovery.MinCandidateHealth)
	viper.SetDefault("recovery.max_candidates", defaults.Recovery.MaxCandidates)
	viper.SetDefault("recovery.migration_delay", defaults.Recovery.MigrationDelay)
	viper.SetDefault("recovery.decision_timeout", defaults.Recovery.DecisionTimeout)

	// Workflow defaults
	viper.SetDefault("workflow.step_interval", defaults.Workflow.StepInterval)
	viper.SetDefault("workflow.step_increment", defaults.Workflow.StepIncrement)
	viper.SetDefault("workflow.completion_delay", defaults.Workflow.CompletionDelay)
	viper.SetDefault("workflow.workflow_id", defaults.Workflow.WorkflowID)

	// Decision defaults
	viper.SetDefault("decision.backend", defaults.Decision.Backend)
	viper.SetDefault("decision.model", defaults.Decision.Model)
	viper.SetDefault("decision.api_key_env", defaults.Decision.APIKeyEnv)
	viper.SetDefault("decision.endpoint", defaults.Decision.Endpoint)

	// Fleet defaults
	viper.SetDefault("fleet.file", defaults.Fleet.File)
	viper.SetDefault("fleet.agents", defaults.Fleet.Agents)
	viper.SetDefault("fleet.seed", defaults.Fleet.Seed)
	viper.SetDefault("fleet.heartbeat_interval", defaults.Fleet.HeartbeatInterval)
	viper.SetDefault("fleet.event_capacity", defaults.Fleet.EventCapacity)

	// Relay defaults
	viper.SetDefault("relay.enabled", defaults.Relay.Enabled)
	viper.SetDefault("relay.url", defaults.Relay.URL)
	viper.SetDefault("relay.subject", defaults.Relay.Subject)
	viper.SetDefault("relay.encoding", defaults.Relay.Encoding)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// BindEnv enables NEVERSTOP_* environment overrides for every key.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// decodeHook converts "2.5s"-style strings to durations.
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Watch re-loads the configuration whenever the config file changes and
// passes every valid result to apply. Invalid edits are logged and ignored.
func Watch(logger *logging.Logger, apply func(*Config)) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	log := logger.WithComponent("config")

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load()
		if err != nil {
			log.Warn("ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		log.Info("configuration reloaded", "file", e.Name)
		apply(cfg)
	})
	viper.WatchConfig()
}

// LoggerOptions converts the logging section into logger options.
func (c *Config) LoggerOptions() logging.Options {
	return logging.Options{
		Dir:   c.Logging.Dir,
		Level: c.Logging.Level,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
		},
	}
}

// DecisionSettings converts the decision section into client settings.
func (c *Config) DecisionSettings() decision.Settings {
	return decision.Settings{
		Backend:   c.Decision.Backend,
		Model:     c.Decision.Model,
		APIKeyEnv: c.Decision.APIKeyEnv,
		Endpoint:  c.Decision.Endpoint,
		Timeout:   c.Recovery.DecisionTimeout,
	}
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "neverstop")
	}
	// Fall back to ~/.config/neverstop
	home, err := os.UserHomeDir()
	if err != nil {
		return ".neverstop"
	}
	return filepath.Join(home, ".config", "neverstop")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
