package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultMediaThreshold is the size boundary between the two generic
// media buckets.
const DefaultMediaThreshold = 50 * 1024 * 1024

// Config represents the daemon configuration, normally loaded from
// <data_dir>/config.toml.
type Config struct {
	// Telegram application credentials (my.telegram.org).
	APIID   int    `toml:"api_id"`
	APIHash string `toml:"api_hash"`

	// DataDir holds the sqlite database, logs and the lock file.
	DataDir string `toml:"data_dir"`
	// StorageRoot is the base directory for per-account media trees.
	StorageRoot string `toml:"storage_root"`

	// SyncIntervalMinutes is the scheduler tick interval.
	SyncIntervalMinutes int `toml:"sync_interval_minutes"`
	// MediaSizeThreshold splits generic documents into the under/over buckets.
	MediaSizeThreshold int64 `toml:"media_size_threshold"`
	// MessageBatchSize bounds concurrent message processing per batch.
	MessageBatchSize int `toml:"message_batch_size"`
	// MediaAttempts is the total number of download attempts per attachment.
	MediaAttempts int `toml:"media_attempts"`

	// MessageConflict selects the message upsert mode: "ignore" keeps the
	// first-synced row, "replace" refreshes body/media on re-sync. The read
	// flag survives either way.
	MessageConflict string `toml:"message_conflict"`
	// RefreshContacts makes contact re-insertion update names and phone
	// instead of being a no-op.
	RefreshContacts bool `toml:"refresh_contacts"`

	// ExcludedPeers lists remote peer ids that are never mirrored
	// (service accounts, system notification channels).
	ExcludedPeers []int64 `toml:"excluded_peers"`
}

// Default returns a config populated with defaults rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:             dataDir,
		StorageRoot:         filepath.Join(dataDir, "accounts"),
		SyncIntervalMinutes: 60,
		MediaSizeThreshold:  DefaultMediaThreshold,
		MessageBatchSize:    50,
		MediaAttempts:       1,
		MessageConflict:     "ignore",
		// 777000 is the Telegram service notification account,
		// 42777 the login notification bot.
		ExcludedPeers: []int64{777000, 42777},
	}
}

// Load reads config from the given path and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	cfg := Default(filepath.Dir(path))
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = filepath.Join(cfg.DataDir, "accounts")
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate reports fatal configuration errors. A failed validation means no
// sync pass may be attempted.
func (c *Config) Validate() error {
	if c.APIID == 0 || c.APIHash == "" {
		return fmt.Errorf("api_id and api_hash are required")
	}
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root is required")
	}
	if c.SyncIntervalMinutes <= 0 {
		return fmt.Errorf("sync_interval_minutes must be positive, got %d", c.SyncIntervalMinutes)
	}
	if c.MediaSizeThreshold <= 0 {
		return fmt.Errorf("media_size_threshold must be positive, got %d", c.MediaSizeThreshold)
	}
	if c.MessageBatchSize <= 0 {
		return fmt.Errorf("message_batch_size must be positive, got %d", c.MessageBatchSize)
	}
	if c.MediaAttempts < 1 {
		return fmt.Errorf("media_attempts must be at least 1, got %d", c.MediaAttempts)
	}
	switch c.MessageConflict {
	case "ignore", "replace":
	default:
		return fmt.Errorf("message_conflict must be %q or %q, got %q", "ignore", "replace", c.MessageConflict)
	}
	return nil
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tgmirror.db")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "tgmirrord.log")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "LOCK")
}
