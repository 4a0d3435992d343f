// Package config loads the storage engine's settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"heapdb/common"
	"heapdb/logger"
)

const (
	PolicyAbortSelf    = "abort-self"
	PolicyWoundReaders = "wound-readers"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings of a database instance. Zero values in a loaded file keep the defaults.
type Config struct {
	// DataDir is where heap files and the catalog file live.
	DataDir string `yaml:"data_dir"`
	// PageSize is the size of every page in bytes, uniform for all tables.
	PageSize int `yaml:"page_size"`
	// PoolSize is the number of pages the buffer pool caches.
	PoolSize int `yaml:"pool_size"`
	// LockTimeout bounds how long a single lock request waits before the transaction aborts.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// DeadlockPolicy decides who aborts when a writer times out behind readers.
	DeadlockPolicy string `yaml:"deadlock_policy"`
	// Fsync syncs heap files on every page write.
	Fsync bool `yaml:"fsync"`

	Log     logger.Config `yaml:"log"`
	Metrics Metrics       `yaml:"metrics"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

func Default() Config {
	return Config{
		DataDir:        ".",
		PageSize:       common.DefaultPageSize,
		PoolSize:       common.DefaultPoolSize,
		LockTimeout:    common.DefaultLockTimeout,
		DeadlockPolicy: PolicyAbortSelf,
		Log: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "stderr",
		},
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive, got %d", ErrInvalidConfig, c.PageSize)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("%w: pool_size must be positive, got %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("%w: lock_timeout must be positive, got %s", ErrInvalidConfig, c.LockTimeout)
	}
	switch c.DeadlockPolicy {
	case PolicyAbortSelf, PolicyWoundReaders:
	default:
		return fmt.Errorf("%w: unknown deadlock_policy %q", ErrInvalidConfig, c.DeadlockPolicy)
	}

	return nil
}
