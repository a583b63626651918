package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

const (
	// FishCloudURL is the Fish Audio text-to-speech endpoint.
	FishCloudURL = "https://api.fish.audio/v1/tts"

	// DefaultFishVoiceID is the reference voice used when none is configured.
	DefaultFishVoiceID = "default_female_voice"

	fishSampleRate = 24000

	// Without credentials the cloud backend returns len(text)/20 seconds of
	// silence.
	silenceCharsPerSecond = 20
)

// FishCloudConfig holds configuration for the Fish Audio cloud backend.
type FishCloudConfig struct {
	// APIKey authorizes requests. When empty the backend produces silence.
	APIKey string

	// VoiceID is the reference_id of the cloud voice (defaults to
	// DefaultFishVoiceID).
	VoiceID string

	// URL overrides FishCloudURL.
	URL string

	// Timeout bounds one request (defaults to 30s).
	Timeout time.Duration
}

// FishCloud synthesizes with the Fish Audio API.
type FishCloud struct {
	cfg    FishCloudConfig
	client *http.Client
	logger *log.Logger
}

type fishCloudRequest struct {
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id"`
	Format      string `json:"format"`
	MP3Bitrate  int    `json:"mp3_bitrate"`
	OpusBitrate int    `json:"opus_bitrate"`
	Latency     string `json:"latency"`
}

// NewFishCloud creates the cloud backend. A missing API key is not an error:
// the backend still works but returns silence.
func NewFishCloud(cfg FishCloudConfig, client *http.Client, logger *log.Logger) *FishCloud {
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultFishVoiceID
	}
	if cfg.URL == "" {
		cfg.URL = FishCloudURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	f := &FishCloud{cfg: cfg, client: client, logger: logger.WithPrefix(FishCloudName)}
	if cfg.APIKey == "" {
		f.logger.Warn("FISH_AUDIO_API_KEY is not set, speech will be replaced by silence")
	}
	return f
}

// Generate implements tts.Backend.
func (f *FishCloud) Generate(ctx context.Context, text, voice string) (*tts.Result, error) {
	if f.cfg.APIKey == "" {
		seconds := float64(utf8.RuneCountInString(text)) / silenceCharsPerSecond
		f.logger.Warn("No API key, returning silence", "seconds", seconds)
		return &tts.Result{Audio: audio.Silence(seconds, fishSampleRate), Fallback: true}, nil
	}

	referenceID := f.cfg.VoiceID
	if voice != "" && voice != tts.DefaultVoice {
		referenceID = voice
	}
	body, err := json.Marshal(fishCloudRequest{
		Text:        text,
		ReferenceID: referenceID,
		Format:      "wav",
		MP3Bitrate:  128,
		OpusBitrate: -1000,
		Latency:     "normal",
	})
	if err != nil {
		return nil, tts.SynthesisFailed(FishCloudName, "marshal request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, tts.SynthesisFailed(FishCloudName, "create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	data, err := doRequest(f.client, req)
	if err != nil {
		return nil, tts.SynthesisFailed(FishCloudName, "cloud API request failed", err)
	}

	buf, err := audio.DecodeWAVBytes(data)
	if err != nil {
		return nil, tts.NewError(tts.CodeDecodeFailed, FishCloudName, "cloud API returned unreadable audio", err)
	}
	return &tts.Result{Audio: buf}, nil
}

// Info implements tts.Backend.
func (f *FishCloud) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       FishCloudName,
		Model:      fmt.Sprintf("Fish Audio API (%s)", f.cfg.VoiceID),
		Device:     "cloud",
		SampleRate: fishSampleRate,
		Online:     true,
	}
}

// Close implements tts.Backend.
func (f *FishCloud) Close() error {
	return nil
}
