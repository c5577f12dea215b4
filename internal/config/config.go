package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all proxeek configuration.
type Config struct {
	// Input documents produced by the upstream annotation and rating stages
	Inputs InputsConfig `yaml:"inputs"`

	// Result document
	Output OutputConfig `yaml:"output"`

	// Global assignment search
	Optimizer OptimizerConfig `yaml:"optimizer"`

	// Run history
	Store StoreConfig `yaml:"store"`

	// Input watcher
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// InputsConfig locates the four upstream documents.
type InputsConfig struct {
	// Annotation is a haptic annotation file, or a directory holding
	// haptic_annotation*.json exports (the latest by name is used).
	Annotation          string `yaml:"annotation"`
	PhysicalDatabase    string `yaml:"physical_database"`
	ProxyRatings        string `yaml:"proxy_ratings"`
	RelationshipRatings string `yaml:"relationship_ratings"`
}

// OutputConfig configures where results are written.
type OutputConfig struct {
	Path     string `yaml:"path"`
	Markdown bool   `yaml:"markdown"` // also render a markdown summary to the terminal
}

// OptimizerConfig configures the assignment search.
type OptimizerConfig struct {
	Weights       WeightsConfig `yaml:"weights"`
	Exclusivity   bool          `yaml:"exclusivity"`    // a physical object serves at most one virtual object
	Strategy      string        `yaml:"strategy"`       // auto, exhaustive, assignment
	Workers       int           `yaml:"workers"`        // 0 = one per CPU
	MaxCandidates int64         `yaml:"max_candidates"` // 0 = unlimited
	Timeout       string        `yaml:"timeout"`        // empty = no deadline
	BlowupWarning int64         `yaml:"blowup_warning"` // candidate count that triggers a warning
}

// WeightsConfig holds the loss term weights.
type WeightsConfig struct {
	Realism     float64 `yaml:"realism"`
	Priority    float64 `yaml:"priority"`
	Interaction float64 `yaml:"interaction"`
}

// StoreConfig configures the SQLite run history.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig configures the input watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// Known search strategies.
const (
	StrategyAuto       = "auto"
	StrategyExhaustive = "exhaustive"
	StrategyAssignment = "assignment"
)

// ValidStrategies lists all supported search strategies.
var ValidStrategies = []string{StrategyAuto, StrategyExhaustive, StrategyAssignment}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			Annotation:          filepath.Join("StreamingAssets", "Export"),
			PhysicalDatabase:    filepath.Join("output", "physical_object_database.json"),
			ProxyRatings:        filepath.Join("output", "proxy_matching_results.json"),
			RelationshipRatings: filepath.Join("output", "relationship_rating_results.json"),
		},

		Output: OutputConfig{
			Path: filepath.Join("output", "optimization_results.json"),
		},

		Optimizer: OptimizerConfig{
			Weights: WeightsConfig{
				Realism:     1.0,
				Priority:    0.5,
				Interaction: 0.3,
			},
			Exclusivity:   true,
			Strategy:      StrategyAuto,
			BlowupWarning: 1000000,
		},

		Store: StoreConfig{
			Enabled:      false,
			DatabasePath: filepath.Join("output", "proxeek_runs.db"),
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Unparseable values are ignored and the file value is kept.
func (c *Config) applyEnvOverrides() {
	if v, ok := envFloat("PROXEEK_WEIGHT_REALISM"); ok {
		c.Optimizer.Weights.Realism = v
	}
	if v, ok := envFloat("PROXEEK_WEIGHT_PRIORITY"); ok {
		c.Optimizer.Weights.Priority = v
	}
	if v, ok := envFloat("PROXEEK_WEIGHT_INTERACTION"); ok {
		c.Optimizer.Weights.Interaction = v
	}
	if s := os.Getenv("PROXEEK_EXCLUSIVITY"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			c.Optimizer.Exclusivity = b
		}
	}
	if s := os.Getenv("PROXEEK_STRATEGY"); s != "" {
		c.Optimizer.Strategy = strings.ToLower(s)
	}
	if s := os.Getenv("PROXEEK_WORKERS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.Optimizer.Workers = n
		}
	}
	if s := os.Getenv("PROXEEK_MAX_CANDIDATES"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.Optimizer.MaxCandidates = n
		}
	}
	if s := os.Getenv("PROXEEK_TIMEOUT"); s != "" {
		c.Optimizer.Timeout = s
	}
	if path := os.Getenv("PROXEEK_DB"); path != "" {
		c.Store.DatabasePath = path
		c.Store.Enabled = true
	}
	if lvl := os.Getenv("PROXEEK_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

func envFloat(key string) (float64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// GetSearchTimeout returns the search deadline. Zero means no deadline.
func (c *Config) GetSearchTimeout() time.Duration {
	if c.Optimizer.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Optimizer.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// GetWatchDebounce returns the watcher debounce interval.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	w := c.Optimizer.Weights
	weights := []struct {
		name  string
		value float64
	}{
		{"realism", w.Realism},
		{"priority", w.Priority},
		{"interaction", w.Interaction},
	}
	for _, wt := range weights {
		if math.IsNaN(wt.value) || math.IsInf(wt.value, 0) || wt.value < 0 {
			return fmt.Errorf("optimizer.weights.%s must be a finite non-negative number, got %v", wt.name, wt.value)
		}
	}

	validStrategy := false
	for _, s := range ValidStrategies {
		if c.Optimizer.Strategy == s {
			validStrategy = true
			break
		}
	}
	if !validStrategy {
		return fmt.Errorf("invalid optimizer strategy: %s (valid: %v)", c.Optimizer.Strategy, ValidStrategies)
	}

	if c.Optimizer.Workers < 0 {
		return fmt.Errorf("optimizer.workers must be >= 0")
	}
	if c.Optimizer.MaxCandidates < 0 {
		return fmt.Errorf("optimizer.max_candidates must be >= 0")
	}
	if c.Optimizer.Timeout != "" {
		if _, err := time.ParseDuration(c.Optimizer.Timeout); err != nil {
			return fmt.Errorf("invalid optimizer.timeout %q: %w", c.Optimizer.Timeout, err)
		}
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
		}
	}
	if c.Store.Enabled && c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path is required when the store is enabled")
	}

	return nil
}
