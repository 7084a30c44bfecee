package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults applied by Load/ApplyDefaults when fields are unset.
const (
	DefaultMaxWorkers    = 4
	DefaultChunkSize     = 1000
	DefaultMemoryLimitMB = 512
	DefaultLargeFileMB   = 50
)

// Config is the on-disk configuration for the match engine.
type Config struct {
	// DataDir holds the raw per-match JSON files.
	DataDir string `json:"data_dir"`
	// CacheDir holds processed timeline artifacts ({match_id}_processed.gob).
	CacheDir string `json:"cache_dir"`
	// StateDir holds engine state (catalog database, audit log).
	// If empty, CacheDir is used.
	StateDir string `json:"state_dir,omitempty"`

	// MaxWorkers caps the discovery worker pool. The effective pool size is
	// min(MaxWorkers, GOMAXPROCS). 1 disables parallel discovery.
	MaxWorkers int `json:"max_workers,omitempty"`

	// ChunkSize is the number of overs per chunk on the chunked path.
	ChunkSize int `json:"chunk_size,omitempty"`

	// MemoryLimitMB bounds the in-memory cache mirror and gates cache writes.
	MemoryLimitMB int `json:"memory_limit_mb,omitempty"`

	// LargeFileMB is the file size above which chunked processing is forced.
	LargeFileMB int `json:"large_file_mb,omitempty"`

	// LogFormat is "json" or "text".
	LogFormat string `json:"log_format,omitempty"`
	// LogLevel is "debug|info|warn|error".
	LogLevel string `json:"log_level,omitempty"`
}

// ApplyDefaults fills unset numeric fields. Negative values are left for
// Validate to reject.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MemoryLimitMB == 0 {
		c.MemoryLimitMB = DefaultMemoryLimitMB
	}
	if c.LargeFileMB == 0 {
		c.LargeFileMB = DefaultLargeFileMB
	}
	if strings.TrimSpace(c.StateDir) == "" {
		c.StateDir = c.CacheDir
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("missing data_dir")
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return errors.New("missing cache_dir")
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("invalid max_workers %d (must be >= 1)", c.MaxWorkers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("invalid chunk_size %d (must be >= 1)", c.ChunkSize)
	}
	if c.MemoryLimitMB < 1 {
		return fmt.Errorf("invalid memory_limit_mb %d (must be >= 1)", c.MemoryLimitMB)
	}
	if c.LargeFileMB < 1 {
		return fmt.Errorf("invalid large_file_mb %d (must be >= 1)", c.LargeFileMB)
	}
	return nil
}

// MemoryLimitBytes returns the configured budget in bytes.
func (c *Config) MemoryLimitBytes() int64 {
	return int64(c.MemoryLimitMB) * 1024 * 1024
}

// LargeFileBytes returns the chunking threshold in bytes.
func (c *Config) LargeFileBytes() int64 {
	return int64(c.LargeFileMB) * 1024 * 1024
}

// DefaultConfigPath returns the default config path:
//
//	~/.matchengine/config.json
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "matchengine.config.json"
	}
	return filepath.Join(home, ".matchengine", "config.json")
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write atomically.
	tmp := path + ".tmp"
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
