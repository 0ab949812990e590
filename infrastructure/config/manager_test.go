package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) (*ConfigManager, *Config, string) {
	t.Helper()
	cfg := Default()
	path := filepath.Join(t.TempDir(), "config.yaml")
	return NewConfigManager(cfg, path), cfg, path
}

func TestConfigManager_List(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	entries, err := mgr.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	byKey := make(map[string]string)
	for i, e := range entries {
		if i > 0 && entries[i-1].Key >= e.Key {
			t.Errorf("entries not sorted: %q before %q", entries[i-1].Key, e.Key)
		}
		byKey[e.Key] = e.Value
	}

	want := map[string]string{
		"server.addr":          ":8080",
		"ffmpeg.binary":        "ffmpeg",
		"ffmpeg.probe_timeout": "30s",
		"audio.codec":          "aac",
		"log.format":           "console",
	}
	for key, value := range want {
		if byKey[key] != value {
			t.Errorf("%s = %q, want %q", key, byKey[key], value)
		}
	}
}

func TestConfigManager_Get(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	value, err := mgr.Get(" Audio.Bitrate ")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "192k" {
		t.Errorf("Get() = %q, want 192k", value)
	}

	if _, err := mgr.Get("audio.volume"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestConfigManager_Set(t *testing.T) {
	mgr, cfg, path := newTestManager(t)

	if err := mgr.Set("ffmpeg.max_concurrent", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := mgr.Set("ffmpeg.extract_timeout", "5m"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if cfg.FFmpeg.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.FFmpeg.MaxConcurrent)
	}
	if cfg.FFmpeg.ExtractTimeout != 5*time.Minute {
		t.Errorf("ExtractTimeout = %v, want 5m", cfg.FFmpeg.ExtractTimeout)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.FFmpeg.MaxConcurrent != 2 || loaded.FFmpeg.ExtractTimeout != 5*time.Minute {
		t.Errorf("saved config not updated: %+v", loaded.FFmpeg)
	}
}

func TestConfigManager_SetRejects(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{name: "unknown key", key: "server.port", value: "80", wantErr: ErrUnknownKey},
		{name: "section only", key: "server", value: "x", wantErr: ErrUnknownKey},
		{name: "not a number", key: "ffmpeg.max_concurrent", value: "lots"},
		{name: "fails validation", key: "ffmpeg.max_concurrent", value: "0"},
		{name: "bad duration", key: "server.shutdown_timeout", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, cfg, _ := newTestManager(t)
			before := *cfg

			err := mgr.Set(tt.key, tt.value)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if *cfg != before {
				t.Errorf("config modified on rejected set: %+v", *cfg)
			}
		})
	}
}
