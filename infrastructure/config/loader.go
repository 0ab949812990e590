package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sh1Nome/extract-streams-web/domain/audio"
)

// EnvPrefix prefixes every environment override, e.g. EXTRACT_SERVER_ADDR
const EnvPrefix = "EXTRACT"

// DefaultPath is where the config file is looked up when --config is not given
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration. Every field can
// be overridden from the environment as EXTRACT_<SECTION>_<FIELD>, e.g.
// EXTRACT_FFMPEG_MAX_CONCURRENT.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Audio     AudioConfig     `yaml:"audio"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr                string        `yaml:"addr" split_words:"true"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	MaxUploadBytes      int64         `yaml:"max_upload_bytes" split_words:"true"`
	MaxInflightRequests int           `yaml:"max_inflight_requests" split_words:"true"`
}

// FFmpegConfig contains external tool settings
type FFmpegConfig struct {
	Binary         string        `yaml:"binary" split_words:"true"`
	ProbeBinary    string        `yaml:"probe_binary" split_words:"true"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" split_words:"true"`
	ExtractTimeout time.Duration `yaml:"extract_timeout" split_words:"true"`
	MaxConcurrent  int           `yaml:"max_concurrent" split_words:"true"`
}

// AudioConfig contains audio encoding settings
type AudioConfig struct {
	Codec     string `yaml:"codec" split_words:"true"`
	Bitrate   string `yaml:"bitrate" split_words:"true"`
	Extension string `yaml:"extension" split_words:"true"`
}

// WorkspaceConfig contains temporary file settings
type WorkspaceConfig struct {
	TempDir string `yaml:"temp_dir" split_words:"true"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// Default returns the configuration used when no file or override sets a value
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			ShutdownTimeout:     10 * time.Second,
			MaxUploadBytes:      1 << 30,
			MaxInflightRequests: 4,
		},
		FFmpeg: FFmpegConfig{
			Binary:         "ffmpeg",
			ProbeBinary:    "ffprobe",
			ProbeTimeout:   30 * time.Second,
			ExtractTimeout: 10 * time.Minute,
			MaxConcurrent:  defaultMaxConcurrent(),
		},
		Audio: AudioConfig{
			Codec:     audio.DefaultCodec,
			Bitrate:   audio.DefaultBitrate,
			Extension: audio.DefaultExtension,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultMaxConcurrent() int {
	return min(max(runtime.NumCPU(), 1), 4)
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to defaults when path does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Default())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.ShutdownTimeout < 0 {
		problems = append(problems, "server.shutdown_timeout must not be negative")
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "server.max_upload_bytes must be positive")
	}
	if c.Server.MaxInflightRequests < 1 {
		problems = append(problems, "server.max_inflight_requests must be at least 1")
	}

	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		problems = append(problems, "ffmpeg.binary is required")
	}
	if strings.TrimSpace(c.FFmpeg.ProbeBinary) == "" {
		problems = append(problems, "ffmpeg.probe_binary is required")
	}
	if c.FFmpeg.ProbeTimeout < 0 || c.FFmpeg.ExtractTimeout < 0 {
		problems = append(problems, "ffmpeg timeouts must not be negative")
	}
	if c.FFmpeg.MaxConcurrent < 1 {
		problems = append(problems, "ffmpeg.max_concurrent must be at least 1")
	}

	if err := c.Encoding().Validate(); err != nil {
		problems = append(problems, "audio: "+err.Error())
	}

	if dir := c.Workspace.TempDir; dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("workspace.temp_dir %q is not a directory", dir))
		}
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is invalid", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Encoding returns the audio encoding policy described by the config
func (c *Config) Encoding() audio.EncodingPolicy {
	return audio.EncodingPolicy{
		Codec:     c.Audio.Codec,
		Bitrate:   c.Audio.Bitrate,
		Extension: c.Audio.Extension,
	}
}
