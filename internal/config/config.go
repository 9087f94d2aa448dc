// Package config provides configuration for the constellation workspace.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds workspace configuration.
type Config struct {
	// DataDir is the root directory for the key/value database.
	DataDir string `yaml:"dataDir"`
	// Backend selects the store: sqlite, badger or memory.
	Backend string `yaml:"backend"`
	// WorkspaceName names a freshly created workspace.
	WorkspaceName string `yaml:"workspaceName"`
	// HistoryLimit caps each undo and redo stack.
	HistoryLimit int `yaml:"historyLimit"`
	// SaveDelay is the quiet period before a debounced save.
	SaveDelay time.Duration `yaml:"saveDelay"`
	// SaveMaxWait forces a save during continuous editing.
	SaveMaxWait time.Duration `yaml:"saveMaxWait"`
	// DragWindow is the quiet period that ends a drag burst.
	DragWindow time.Duration `yaml:"dragWindow"`
	// SettleWindow suppresses dirty detection after a document load.
	SettleWindow time.Duration `yaml:"settleWindow"`
	// UnloadAfter is the inactivity period before a clean, inactive
	// document is unloaded.
	UnloadAfter time.Duration `yaml:"unloadAfter"`
	// MaxOpenDocuments caps the number of open tabs.
	MaxOpenDocuments int `yaml:"maxOpenDocuments"`
	// AutoSave enables debounced saving after edits.
	AutoSave bool `yaml:"autoSave"`
	// CompressThreshold is the value size from which stored values are
	// zstd-compressed. Zero disables compression.
	CompressThreshold int `yaml:"compressThreshold"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"logLevel"`
	// LogFormat is text or json.
	LogFormat string `yaml:"logFormat"`
	// MetricsFile, when set, receives a Prometheus textfile on exit.
	MetricsFile string `yaml:"metricsFile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:           defaultDataDir(),
		Backend:           "sqlite",
		WorkspaceName:     "My Workspace",
		HistoryLimit:      50,
		SaveDelay:         time.Second,
		SaveMaxWait:       5 * time.Second,
		DragWindow:        500 * time.Millisecond,
		SettleWindow:      50 * time.Millisecond,
		UnloadAfter:       5 * time.Minute,
		MaxOpenDocuments:  10,
		AutoSave:          true,
		CompressThreshold: 4 << 10,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "constellation")
	}
	return ".constellation"
}

// FromEnv creates a Config from the defaults overridden by environment
// variables.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// Load reads the YAML file at path (if non-empty and present) over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("CONSTELLATION_DATA", c.DataDir)
	c.Backend = getEnv("CONSTELLATION_BACKEND", c.Backend)
	c.WorkspaceName = getEnv("CONSTELLATION_WORKSPACE_NAME", c.WorkspaceName)
	c.HistoryLimit = getEnvInt("CONSTELLATION_HISTORY_LIMIT", c.HistoryLimit)
	c.SaveDelay = getEnvDuration("CONSTELLATION_SAVE_DELAY", c.SaveDelay)
	c.SaveMaxWait = getEnvDuration("CONSTELLATION_SAVE_MAX_WAIT", c.SaveMaxWait)
	c.DragWindow = getEnvDuration("CONSTELLATION_DRAG_WINDOW", c.DragWindow)
	c.SettleWindow = getEnvDuration("CONSTELLATION_SETTLE_WINDOW", c.SettleWindow)
	c.UnloadAfter = getEnvDuration("CONSTELLATION_UNLOAD_AFTER", c.UnloadAfter)
	c.MaxOpenDocuments = getEnvInt("CONSTELLATION_MAX_OPEN", c.MaxOpenDocuments)
	c.AutoSave = getEnvBool("CONSTELLATION_AUTOSAVE", c.AutoSave)
	c.CompressThreshold = getEnvInt("CONSTELLATION_COMPRESS_THRESHOLD", c.CompressThreshold)
	c.LogLevel = getEnv("CONSTELLATION_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("CONSTELLATION_LOG_FORMAT", c.LogFormat)
	c.MetricsFile = getEnv("CONSTELLATION_METRICS_FILE", c.MetricsFile)
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("unknown backend %q (want sqlite, badger or memory)", c.Backend)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("historyLimit must be positive, got %d", c.HistoryLimit)
	}
	if c.MaxOpenDocuments <= 0 {
		return fmt.Errorf("maxOpenDocuments must be positive, got %d", c.MaxOpenDocuments)
	}
	if c.SaveMaxWait > 0 && c.SaveMaxWait < c.SaveDelay {
		return fmt.Errorf("saveMaxWait (%s) is shorter than saveDelay (%s)", c.SaveMaxWait, c.SaveDelay)
	}
	return nil
}

// StorePath is the database location for the configured backend.
func (c *Config) StorePath() string {
	switch c.Backend {
	case "badger":
		return filepath.Join(c.DataDir, "badger")
	case "sqlite":
		return filepath.Join(c.DataDir, "workspace.db")
	}
	return ""
}

// NewLogger builds a logger writing to w at the configured level and
// format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return NewLogger(c.LogLevel, c.LogFormat, w)
}

// NewLogger creates a slog.Logger. Unknown levels fall back to info and
// unknown formats to text.
func NewLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
