package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{
		DataDir:  "data",
		CacheDir: "cache",
	}
	cfg.ApplyDefaults()

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DataDir != "data" || got.CacheDir != "cache" {
		t.Fatalf("unexpected dirs: %+v", got)
	}
	if got.MaxWorkers != DefaultMaxWorkers {
		t.Fatalf("MaxWorkers=%d, want %d", got.MaxWorkers, DefaultMaxWorkers)
	}
	if got.ChunkSize != DefaultChunkSize {
		t.Fatalf("ChunkSize=%d, want %d", got.ChunkSize, DefaultChunkSize)
	}
	if got.StateDir != "cache" {
		t.Fatalf("StateDir=%q, want cache fallback", got.StateDir)
	}
}

func TestValidate_RejectsNegativeChunkSize(t *testing.T) {
	t.Parallel()

	cfg := &Config{DataDir: "data", CacheDir: "cache", ChunkSize: -5}
	cfg.ApplyDefaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("Validate accepted negative chunk_size")
	}
	if !strings.Contains(err.Error(), "chunk_size") {
		t.Fatalf("error %q does not name chunk_size", err)
	}
}

func TestValidate_MissingDirs(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate accepted empty data_dir")
	}
}

func TestMemoryLimitBytes(t *testing.T) {
	t.Parallel()

	cfg := &Config{DataDir: "d", CacheDir: "c", MemoryLimitMB: 2}
	cfg.ApplyDefaults()
	if got := cfg.MemoryLimitBytes(); got != 2*1024*1024 {
		t.Fatalf("MemoryLimitBytes=%d", got)
	}
}
