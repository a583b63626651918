package config

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/hollyai/holly-voice/internal/tts/engines"
	"github.com/hollyai/holly-voice/internal/voice"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FISH_AUDIO_API_KEY", "HOLLY_VOICE_ID", "LLAMA_CHECKPOINT",
		"DECODER_CHECKPOINT", "OPENAI_API_KEY", "HF_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearCredentials(t)

	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine != engines.FishCloudName {
		t.Errorf("Engine = %s, want fish-cloud", cfg.Engine)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr = %s, want 0.0.0.0:8000", cfg.Addr())
	}
	if cfg.Credentials.VoiceID != "default_female_voice" {
		t.Errorf("VoiceID = %s, want default_female_voice", cfg.Credentials.VoiceID)
	}
	if cfg.GTTS.RequestsPerMinute != 50 {
		t.Errorf("RequestsPerMinute = %d, want 50", cfg.GTTS.RequestsPerMinute)
	}
	if cfg.Cache.MemorySizeMB != 64 {
		t.Errorf("MemorySizeMB = %d, want 64", cfg.Cache.MemorySizeMB)
	}
}

func TestLoad_Credentials(t *testing.T) {
	clearCredentials(t)
	t.Setenv("FISH_AUDIO_API_KEY", "fish-key")
	t.Setenv("HOLLY_VOICE_ID", "holly-ref")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	opts, err := cfg.EngineOptions(http.DefaultClient, log.New(io.Discard))
	if err != nil {
		t.Fatalf("EngineOptions() error = %v", err)
	}

	if opts.FishCloud.APIKey != "fish-key" || opts.FishCloud.VoiceID != "holly-ref" {
		t.Errorf("fish-cloud options = %+v", opts.FishCloud)
	}
	if opts.OpenAI.APIKey != "sk-test" {
		t.Errorf("openai key not passed through")
	}
	if opts.FishLocal.ReferenceText != voice.Description {
		t.Errorf("reference text = %q", opts.FishLocal.ReferenceText)
	}
	if opts.Piper.Timeout != 30*time.Second || opts.GTTS.Timeout != 30*time.Second {
		t.Errorf("timeouts not applied: piper %v, gtts %v", opts.Piper.Timeout, opts.GTTS.Timeout)
	}
}

func TestValidate(t *testing.T) {
	clearCredentials(t)

	tests := []struct {
		name string
		key  string
		val  any
		want string
	}{
		{"unknown engine", "engine", "espeak", "invalid TTS engine"},
		{"unknown fallback", "fallback_engine", "espeak", "fallback_engine"},
		{"bad port", "port", 70000, "port"},
		{"bad level", "log.level", "loud", "log.level"},
		{"bad format", "log.format", "xml", "log.format"},
		{"bad timeout", "timeout", "soon", "invalid timeout"},
		{"negative memory", "cache.memory_size", -1, "cache.memory_size"},
		{"length scale", "piper.length_scale", 5.0, "piper.length_scale"},
		{"speed", "openai.speed", 9.0, "openai.speed"},
		{"language", "gtts.language", "x", "gtts.language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			if err == nil {
				t.Fatalf("Load() accepted %s=%v", tt.key, tt.val)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEngineNameIsCaseInsensitive(t *testing.T) {
	clearCredentials(t)
	v := newViper()
	v.Set("engine", "GTTS")
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != engines.GTTSName {
		t.Errorf("Engine = %s, want gtts", cfg.Engine)
	}
}

func TestCacheDir(t *testing.T) {
	cfg := &Config{Engine: engines.PiperName}
	dir, err := cfg.CacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dir) != engines.PiperName || !strings.Contains(dir, AppName) {
		t.Errorf("default cache dir %q should end in holly-voice/piper", dir)
	}

	cfg.Cache.Dir = "/var/cache/holly"
	if dir, _ := cfg.CacheDir(); dir != "/var/cache/holly" {
		t.Errorf("configured cache dir ignored: %q", dir)
	}
}

func TestExpandPath(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", "/home/holly")
	t.Setenv("HOLLY_MODELS", "/models")

	tests := map[string]string{
		"":                   "",
		"~/cache":            "/home/holly/cache",
		"$HOLLY_MODELS/amy":  "/models/amy",
		"checkpoints/fish/.": "checkpoints/fish",
	}
	for in, want := range tests {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}
