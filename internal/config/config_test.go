package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig(dir string) *Config {
	cfg := Default(dir)
	cfg.APIID = 12345
	cfg.APIHash = "abcdef"
	return cfg
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := validConfig(tmpDir)
	cfg.SyncIntervalMinutes = 15
	cfg.MessageConflict = "replace"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.SyncIntervalMinutes != 15 {
		t.Errorf("SyncIntervalMinutes = %d, want 15", loaded.SyncIntervalMinutes)
	}
	if loaded.MessageConflict != "replace" {
		t.Errorf("MessageConflict = %q, want replace", loaded.MessageConflict)
	}
	if loaded.MediaSizeThreshold != DefaultMediaThreshold {
		t.Errorf("MediaSizeThreshold = %d, want default", loaded.MediaSizeThreshold)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte("api_id = 1\napi_hash = \"h\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SyncIntervalMinutes != 60 {
		t.Errorf("SyncIntervalMinutes = %d, want 60", cfg.SyncIntervalMinutes)
	}
	if cfg.MessageBatchSize != 50 {
		t.Errorf("MessageBatchSize = %d, want 50", cfg.MessageBatchSize)
	}
	if cfg.StorageRoot == "" {
		t.Error("StorageRoot should default under data dir")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing api hash", func(c *Config) { c.APIHash = "" }, true},
		{"missing storage root", func(c *Config) { c.StorageRoot = "" }, true},
		{"zero interval", func(c *Config) { c.SyncIntervalMinutes = 0 }, true},
		{"negative threshold", func(c *Config) { c.MediaSizeThreshold = -1 }, true},
		{"zero batch", func(c *Config) { c.MessageBatchSize = 0 }, true},
		{"zero attempts", func(c *Config) { c.MediaAttempts = 0 }, true},
		{"bad conflict mode", func(c *Config) { c.MessageConflict = "merge" }, true},
		{"replace mode", func(c *Config) { c.MessageConflict = "replace" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, validConfig(tmpDir)); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
