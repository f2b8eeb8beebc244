package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration.
type Config struct {
	// Engine configuration
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Maximum number of concurrently open sessions. The session table is
	// sized once at open time and never resized.
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"`

	// Instance-wide operation deadline in microseconds. Zero means
	// operations run with no deadline.
	OperationTimeoutUS int64 `json:"operation_timeout_us" yaml:"operation_timeout_us"`

	// Salvage enables best-effort repair of corrupted or missing files
	// during open.
	Salvage bool `json:"salvage" yaml:"salvage"`

	// LeakMemoryOnClose skips session scratch reclamation during close, for
	// fast process exit.
	LeakMemoryOnClose bool `json:"leak_memory_on_close" yaml:"leak_memory_on_close"`

	// TraceFile, when non-empty, names an operation trace file opened for
	// the engine's lifetime.
	TraceFile string `json:"trace_file" yaml:"trace_file"`

	// Subsystem configuration
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	WAL        WALConfig        `json:"wal" yaml:"wal"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	Statistics StatisticsConfig `json:"statistics" yaml:"statistics"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
	Capacity   CapacityConfig   `json:"capacity" yaml:"capacity"`
}

// CacheConfig represents block-cache configuration.
type CacheConfig struct {
	SizeMB      int64  `json:"size_mb" yaml:"size_mb"`
	NumCounters int64  `json:"num_counters" yaml:"num_counters"`
	SharedPool  string `json:"shared_pool" yaml:"shared_pool"` // empty: no shared pool
}

// WALConfig represents write-ahead-log configuration.
type WALConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	Directory    string `json:"directory" yaml:"directory"`
	SegmentSize  int64  `json:"segment_size" yaml:"segment_size"`
	BufferSize   int    `json:"buffer_size" yaml:"buffer_size"`
	SyncOnCommit bool   `json:"sync_on_commit" yaml:"sync_on_commit"`
}

// CheckpointConfig represents the periodic checkpoint scheduler.
type CheckpointConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Interval   string `json:"interval" yaml:"interval"` // duration string
	MinRecords int    `json:"min_records" yaml:"min_records"`
}

// StatisticsConfig represents the periodic statistics logger.
type StatisticsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Interval string `json:"interval" yaml:"interval"` // duration string
}

// SweepConfig represents the handle-sweep thread.
type SweepConfig struct {
	Interval string `json:"interval" yaml:"interval"` // duration string
}

// CapacityConfig represents the optional capacity-throttle thread.
type CapacityConfig struct {
	Enabled        bool  `json:"enabled" yaml:"enabled"`
	BytesPerSecond int64 `json:"bytes_per_second" yaml:"bytes_per_second"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:            "./data",
		LogLevel:           "info",
		MaxSessions:        100,
		OperationTimeoutUS: 0,
		Cache: CacheConfig{
			SizeMB:      128,
			NumCounters: 1e6,
		},
		WAL: WALConfig{
			Enabled:      true,
			Directory:    "wal",
			SegmentSize:  16 * 1024 * 1024, // 16MB
			BufferSize:   1024 * 1024,      // 1MB
			SyncOnCommit: true,
		},
		Checkpoint: CheckpointConfig{
			Enabled:    true,
			Interval:   "5m",
			MinRecords: 1000,
		},
		Statistics: StatisticsConfig{
			Enabled:  false,
			Interval: "1m",
		},
		Sweep: SweepConfig{
			Interval: "10s",
		},
		Capacity: CapacityConfig{
			Enabled:        false,
			BytesPerSecond: 0,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, selected by the
// file extension.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFlags merges command-line flags into the configuration.
func (c *Config) LoadFromFlags(dataDir, logLevel string, maxSessions int) {
	if dataDir != "" {
		c.DataDir = dataDir
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if maxSessions > 0 {
		c.MaxSessions = maxSessions
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be at least 1")
	}
	if c.OperationTimeoutUS < 0 {
		return fmt.Errorf("operation timeout cannot be negative")
	}

	if c.Cache.SizeMB < 1 {
		return fmt.Errorf("cache size must be at least 1MB")
	}
	if c.Cache.NumCounters < 1 {
		return fmt.Errorf("cache counters must be at least 1")
	}

	if c.WAL.Enabled {
		if c.WAL.SegmentSize < 1024 {
			return fmt.Errorf("WAL segment size must be at least 1KB")
		}
		if c.WAL.BufferSize < 1 {
			return fmt.Errorf("WAL buffer size must be at least 1 byte")
		}
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"checkpoint interval", c.Checkpoint.Interval},
		{"statistics interval", c.Statistics.Interval},
		{"sweep interval", c.Sweep.Interval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	if c.Capacity.Enabled && c.Capacity.BytesPerSecond < 1 {
		return fmt.Errorf("capacity throttle requires a positive bytes-per-second limit")
	}

	return nil
}

// GetWALDirectory returns the full path to the WAL directory.
func (c *Config) GetWALDirectory() string {
	return filepath.Join(c.DataDir, c.WAL.Directory)
}

// GetMetadataPath returns the full path to the metadata catalog file.
func (c *Config) GetMetadataPath() string {
	return filepath.Join(c.DataDir, "petra.meta")
}

// GetLockPath returns the full path to the instance lock file.
func (c *Config) GetLockPath() string {
	return filepath.Join(c.DataDir, "petra.lock")
}

// CheckpointInterval returns the parsed checkpoint interval.
func (c *Config) CheckpointInterval() time.Duration {
	d, err := time.ParseDuration(c.Checkpoint.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// StatisticsInterval returns the parsed statistics interval.
func (c *Config) StatisticsInterval() time.Duration {
	d, err := time.ParseDuration(c.Statistics.Interval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// SweepInterval returns the parsed handle-sweep interval.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Sweep.Interval)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
