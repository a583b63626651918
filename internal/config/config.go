// Package config loads holly-voice settings from viper (config file, flags
// and HOLLY_* variables) and credentials from the environment.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/hollyai/holly-voice/internal/tts"
	"github.com/hollyai/holly-voice/internal/tts/engines"
	"github.com/hollyai/holly-voice/internal/voice"
)

// AppName names the config file, cache and log directories.
const AppName = "holly-voice"

// Config contains all holly-voice settings.
type Config struct {
	Engine        string
	Fallback      string
	FallbackAfter int
	Timeout       time.Duration

	Host string
	Port int

	LogLevel  string
	LogFormat string
	LogFile   string

	Cache     CacheConfig
	FishLocal FishLocalConfig
	FishCloud FishCloudConfig
	GTTS      GTTSConfig
	Piper     PiperConfig
	OpenAI    OpenAIConfig

	Credentials Credentials
}

// CacheConfig contains the audio cache settings.
type CacheConfig struct {
	Dir          string
	MemorySizeMB int
	WarmOnStart  bool
}

// FishLocalConfig contains the local Fish-Speech settings.
type FishLocalConfig struct {
	URL           string
	CheckpointDir string
	ReferenceDir  string
	AutoDownload  bool
}

// FishCloudConfig contains the Fish Audio API settings.
type FishCloudConfig struct {
	URL string
}

// GTTSConfig contains the Google Translate speech settings.
type GTTSConfig struct {
	Language          string
	Slow              bool
	RequestsPerMinute int
}

// PiperConfig contains the piper binary settings.
type PiperConfig struct {
	Binary      string
	Model       string
	ModelDir    string
	ModelURL    string
	LengthScale float64
}

// OpenAIConfig contains the OpenAI speech API settings.
type OpenAIConfig struct {
	BaseURL string
	Model   string
	Voice   string
	Speed   float64
}

// Credentials are read from the environment only, never from the config
// file.
type Credentials struct {
	FishAudioAPIKey   string `env:"FISH_AUDIO_API_KEY"`
	VoiceID           string `env:"HOLLY_VOICE_ID" envDefault:"default_female_voice"`
	LlamaCheckpoint   string `env:"LLAMA_CHECKPOINT"`
	DecoderCheckpoint string `env:"DECODER_CHECKPOINT"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	HFToken           string `env:"HF_TOKEN"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine", engines.FishCloudName)
	v.SetDefault("fallback_engine", "")
	v.SetDefault("fallback_after", 3)
	v.SetDefault("timeout", "30s")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.memory_size", 64)
	v.SetDefault("cache.warm_on_start", false)

	v.SetDefault("fish.local.url", engines.DefaultFishServerURL)
	v.SetDefault("fish.local.checkpoint_dir", "checkpoints/fish-speech-1.5")
	v.SetDefault("fish.local.reference_dir", "voice_references")
	v.SetDefault("fish.local.auto_download", true)
	v.SetDefault("fish.cloud.url", engines.FishCloudURL)

	v.SetDefault("gtts.language", "en")
	v.SetDefault("gtts.slow", false)
	v.SetDefault("gtts.requests_per_minute", 50)

	v.SetDefault("piper.binary", "piper")
	v.SetDefault("piper.model", engines.DefaultPiperModel)
	v.SetDefault("piper.model_dir", "")
	v.SetDefault("piper.model_url", engines.DefaultPiperModelURL)
	v.SetDefault("piper.length_scale", 1.0)

	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "tts-1")
	v.SetDefault("openai.voice", "nova")
	v.SetDefault("openai.speed", 1.0)
}

// Load builds a Config from v and the environment and validates it.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := time.ParseDuration(v.GetString("timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", v.GetString("timeout"), err)
	}

	cfg := &Config{
		Engine:        strings.ToLower(v.GetString("engine")),
		Fallback:      strings.ToLower(v.GetString("fallback_engine")),
		FallbackAfter: v.GetInt("fallback_after"),
		Timeout:       timeout,
		Host:          v.GetString("host"),
		Port:          v.GetInt("port"),
		LogLevel:      v.GetString("log.level"),
		LogFormat:     v.GetString("log.format"),
		LogFile:       ExpandPath(v.GetString("log.file")),
		Cache: CacheConfig{
			Dir:          ExpandPath(v.GetString("cache.dir")),
			MemorySizeMB: v.GetInt("cache.memory_size"),
			WarmOnStart:  v.GetBool("cache.warm_on_start"),
		},
		FishLocal: FishLocalConfig{
			URL:           v.GetString("fish.local.url"),
			CheckpointDir: ExpandPath(v.GetString("fish.local.checkpoint_dir")),
			ReferenceDir:  ExpandPath(v.GetString("fish.local.reference_dir")),
			AutoDownload:  v.GetBool("fish.local.auto_download"),
		},
		FishCloud: FishCloudConfig{
			URL: v.GetString("fish.cloud.url"),
		},
		GTTS: GTTSConfig{
			Language:          v.GetString("gtts.language"),
			Slow:              v.GetBool("gtts.slow"),
			RequestsPerMinute: v.GetInt("gtts.requests_per_minute"),
		},
		Piper: PiperConfig{
			Binary:      ExpandPath(v.GetString("piper.binary")),
			Model:       v.GetString("piper.model"),
			ModelDir:    ExpandPath(v.GetString("piper.model_dir")),
			ModelURL:    v.GetString("piper.model_url"),
			LengthScale: v.GetFloat64("piper.length_scale"),
		},
		OpenAI: OpenAIConfig{
			BaseURL: v.GetString("openai.base_url"),
			Model:   v.GetString("openai.model"),
			Voice:   v.GetString("openai.voice"),
			Speed:   v.GetFloat64("openai.speed"),
		},
	}

	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	cfg.Credentials = creds

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and engine names.
func (c *Config) Validate() error {
	if err := tts.ValidateEngineSelection(c.Engine, engines.Names()); err != nil {
		return err
	}
	if c.Fallback != "" {
		if err := tts.ValidateEngineSelection(c.Fallback, engines.Names()); err != nil {
			return fmt.Errorf("fallback_engine: %w", err)
		}
	}
	if c.FallbackAfter < 1 {
		return errors.New("fallback_after must be at least 1")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.LogFormat)
	}
	if c.Cache.MemorySizeMB < 0 || c.Cache.MemorySizeMB > 10000 {
		return fmt.Errorf("cache.memory_size must be between 0 and 10000 MB, got %d", c.Cache.MemorySizeMB)
	}
	if c.GTTS.RequestsPerMinute < 1 {
		return errors.New("gtts.requests_per_minute must be at least 1")
	}
	if len(c.GTTS.Language) < 2 || len(c.GTTS.Language) > 5 {
		return fmt.Errorf("gtts.language must be 2-5 characters, got %q", c.GTTS.Language)
	}
	if c.Piper.LengthScale < 0.1 || c.Piper.LengthScale > 3.0 {
		return fmt.Errorf("piper.length_scale must be between 0.1 and 3.0, got %.2f", c.Piper.LengthScale)
	}
	if c.OpenAI.Speed != 0 && (c.OpenAI.Speed < 0.25 || c.OpenAI.Speed > 4.0) {
		return fmt.Errorf("openai.speed must be between 0.25 and 4.0, got %.2f", c.OpenAI.Speed)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheDir returns the cache directory. Each engine gets its own directory
// by default since engines produce different audio for the same text.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	scope := gap.NewScope(gap.User, AppName)
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not find cache directory: %w", err)
	}
	return filepath.Join(dir, c.Engine), nil
}

// PiperModelDir returns where piper models live.
func (c *Config) PiperModelDir() (string, error) {
	if c.Piper.ModelDir != "" {
		return c.Piper.ModelDir, nil
	}
	dir, err := gap.NewScope(gap.User, AppName).DataPath("piper")
	if err != nil {
		return "", fmt.Errorf("could not find data directory: %w", err)
	}
	return dir, nil
}

// EngineOptions maps the configuration onto engine settings.
func (c *Config) EngineOptions(client *http.Client, logger *log.Logger) (engines.Options, error) {
	modelDir, err := c.PiperModelDir()
	if err != nil {
		return engines.Options{}, err
	}

	return engines.Options{
		FishLocal: engines.FishLocalConfig{
			URL:               c.FishLocal.URL,
			Checkpoint:        ExpandPath(c.Credentials.LlamaCheckpoint),
			DecoderCheckpoint: ExpandPath(c.Credentials.DecoderCheckpoint),
			CheckpointDir:     c.FishLocal.CheckpointDir,
			AutoDownload:      c.FishLocal.AutoDownload,
			HFToken:           c.Credentials.HFToken,
			ReferenceDir:      c.FishLocal.ReferenceDir,
			ReferenceText:     voice.Description,
			Timeout:           c.Timeout,
		},
		FishCloud: engines.FishCloudConfig{
			APIKey:  c.Credentials.FishAudioAPIKey,
			VoiceID: c.Credentials.VoiceID,
			URL:     c.FishCloud.URL,
			Timeout: c.Timeout,
		},
		GTTS: engines.GTTSConfig{
			Language:          c.GTTS.Language,
			Slow:              c.GTTS.Slow,
			RequestsPerMinute: c.GTTS.RequestsPerMinute,
			Timeout:           c.Timeout,
		},
		Piper: engines.PiperConfig{
			Binary:      c.Piper.Binary,
			Model:       c.Piper.Model,
			ModelDir:    modelDir,
			ModelURL:    c.Piper.ModelURL,
			LengthScale: c.Piper.LengthScale,
			Timeout:     c.Timeout,
		},
		OpenAI: engines.OpenAIConfig{
			APIKey:  c.Credentials.OpenAIAPIKey,
			BaseURL: c.OpenAI.BaseURL,
			Model:   c.OpenAI.Model,
			Voice:   c.OpenAI.Voice,
			Speed:   c.OpenAI.Speed,
			Timeout: c.Timeout,
		},
		Fallback:      c.Fallback,
		FallbackAfter: c.FallbackAfter,
		HTTPClient:    client,
		Logger:        logger,
	}, nil
}

// ExpandPath expands a leading ~ and environment variables in path.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		expanded = path
	}
	return filepath.Clean(os.ExpandEnv(expanded))
}
