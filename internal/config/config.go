// Package config provides configuration management for pathlight.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pathlight/pathlight/pkg/models"
)

const (
	// DefaultWorkerPort is the default HTTP port for the worker service.
	DefaultWorkerPort = 38000

	// DefaultStorageBackend is used when none is configured.
	DefaultStorageBackend = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `json:"worker_port" yaml:"worker_port"`

	// Storage settings
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"` // memory | sqlite | redis
	DBPath         string `json:"db_path" yaml:"db_path"`
	MaxConns       int    `json:"max_conns" yaml:"max_conns"`
	RedisAddr      string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword  string `json:"redis_password" yaml:"redis_password"`

	// Analysis settings
	MaxInteractions    int `json:"max_interactions" yaml:"max_interactions"`
	SessionGapMinutes  int `json:"session_gap_minutes" yaml:"session_gap_minutes"`
	CacheTTLMinutes    int `json:"cache_ttl_minutes" yaml:"cache_ttl_minutes"`
	DebounceSeconds    int `json:"debounce_seconds" yaml:"debounce_seconds"`
	MaxRecommendations int `json:"max_recommendations" yaml:"max_recommendations"`

	// Decision settings
	HistorySize int `json:"history_size" yaml:"history_size"`

	// Metrics settings
	LatencyWindow int `json:"latency_window" yaml:"latency_window"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.pathlight).
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pathlight")
}

// DBPath returns the default database file path.
func DBPath() string {
	return filepath.Join(DataDir(), "pathlight.db")
}

// SettingsPath returns the JSON settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// YAMLPath returns the YAML config file path. When present it is applied
// before the JSON settings file.
func YAMLPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values, aligned with the model
// defaults.
func Default() *Config {
	analysis := models.DefaultAnalysisConfig()
	decision := models.DefaultDecisionConfig()
	return &Config{
		WorkerPort:         DefaultWorkerPort,
		StorageBackend:     DefaultStorageBackend,
		DBPath:             DBPath(),
		MaxConns:           4,
		RedisAddr:          "localhost:6379",
		MaxInteractions:    analysis.MaxInteractions,
		SessionGapMinutes:  int(analysis.SessionGap / time.Minute),
		CacheTTLMinutes:    int(analysis.CacheTTL / time.Minute),
		DebounceSeconds:    int(analysis.DebounceQuiet / time.Second),
		MaxRecommendations: analysis.MaxRecommendations,
		HistorySize:        decision.HistorySize,
		LatencyWindow:      100,
	}
}

// Load loads configuration, merging the optional YAML config file and the
// JSON settings file over defaults. Parse errors fall back to defaults.
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(YAMLPath()); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return cfg, nil
	}

	if v, ok := settings["PATHLIGHT_WORKER_PORT"].(float64); ok && v > 0 {
		cfg.WorkerPort = int(v)
	}
	if v, ok := settings["PATHLIGHT_STORAGE_BACKEND"].(string); ok && v != "" {
		cfg.StorageBackend = v
	}
	if v, ok := settings["PATHLIGHT_DB_PATH"].(string); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := settings["PATHLIGHT_REDIS_ADDR"].(string); ok && v != "" {
		cfg.RedisAddr = v
	}
	if v, ok := settings["PATHLIGHT_REDIS_PASSWORD"].(string); ok {
		cfg.RedisPassword = v
	}
	if v, ok := settings["PATHLIGHT_MAX_INTERACTIONS"].(float64); ok && v > 0 {
		cfg.MaxInteractions = int(v)
	}
	if v, ok := settings["PATHLIGHT_SESSION_GAP_MINUTES"].(float64); ok && v > 0 {
		cfg.SessionGapMinutes = int(v)
	}
	if v, ok := settings["PATHLIGHT_CACHE_TTL_MINUTES"].(float64); ok && v > 0 {
		cfg.CacheTTLMinutes = int(v)
	}
	if v, ok := settings["PATHLIGHT_DEBOUNCE_SECONDS"].(float64); ok && v > 0 {
		cfg.DebounceSeconds = int(v)
	}
	if v, ok := settings["PATHLIGHT_HISTORY_SIZE"].(float64); ok && v > 0 {
		cfg.HistorySize = int(v)
	}
	if v, ok := settings["PATHLIGHT_MAX_RECOMMENDATIONS"].(float64); ok && v > 0 {
		cfg.MaxRecommendations = int(v)
	}

	return cfg, nil
}

// AnalysisConfig converts to the analysis tunables.
func (c *Config) AnalysisConfig() models.AnalysisConfig {
	cfg := models.DefaultAnalysisConfig()
	if c.MaxInteractions > 0 {
		cfg.MaxInteractions = c.MaxInteractions
	}
	if c.SessionGapMinutes > 0 {
		cfg.SessionGap = time.Duration(c.SessionGapMinutes) * time.Minute
	}
	if c.CacheTTLMinutes > 0 {
		cfg.CacheTTL = time.Duration(c.CacheTTLMinutes) * time.Minute
	}
	if c.DebounceSeconds > 0 {
		cfg.DebounceQuiet = time.Duration(c.DebounceSeconds) * time.Second
	}
	if c.MaxRecommendations > 0 {
		cfg.MaxRecommendations = c.MaxRecommendations
	}
	return cfg
}

// DecisionConfig converts to the decision engine tunables.
func (c *Config) DecisionConfig() models.DecisionConfig {
	cfg := models.DefaultDecisionConfig()
	if c.HistorySize > 0 {
		cfg.HistorySize = c.HistorySize
		cfg.OutcomeHistorySize = c.HistorySize
	}
	return cfg
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Reload re-reads configuration from disk and swaps the global config.
func Reload() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// GetWorkerPort returns the worker port from environment or config.
func GetWorkerPort() int {
	if port := os.Getenv("PATHLIGHT_WORKER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			return p
		}
	}
	return Get().WorkerPort
}
