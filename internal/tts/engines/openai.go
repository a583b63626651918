package engines

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

// OpenAI's speech endpoint returns raw PCM at this rate.
const openAIPCMRate = 24000

// OpenAIConfig holds configuration for OpenAI compatible speech APIs
// (OpenAI itself, or local servers such as Kokoro exposing /v1/audio/speech).
type OpenAIConfig struct {
	// APIKey is required unless BaseURL points at a server without auth.
	APIKey string

	// BaseURL overrides the OpenAI API base, e.g. http://localhost:8880/v1.
	BaseURL string

	// Model defaults to tts-1.
	Model string

	// Voice defaults to nova.
	Voice string

	// Speed between 0.25 and 4.0; 0 keeps the server default.
	Speed float64

	// Timeout bounds one request (defaults to 30s).
	Timeout time.Duration
}

// OpenAIEngine synthesizes through the OpenAI speech API.
type OpenAIEngine struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *log.Logger
}

// NewOpenAIEngine creates the backend. It fails when neither an API key nor
// a custom base URL is configured.
func NewOpenAIEngine(cfg OpenAIConfig, httpClient *http.Client, logger *log.Logger) (*OpenAIEngine, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, tts.Unavailable(OpenAIName, "OPENAI_API_KEY is not set", nil)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceNova)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	return &OpenAIEngine{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.WithPrefix(OpenAIName),
	}, nil
}

// Generate implements tts.Backend.
func (e *OpenAIEngine) Generate(ctx context.Context, text, voice string) (*tts.Result, error) {
	v := e.cfg.Voice
	if voice != "" && voice != tts.DefaultVoice {
		v = voice
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(e.cfg.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(v),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          e.cfg.Speed,
	})
	if err != nil {
		return nil, tts.SynthesisFailed(OpenAIName, "speech request failed", err)
	}
	defer func() { _ = resp.Close() }()

	pcm, err := io.ReadAll(io.LimitReader(resp, maxResponseBytes))
	if err != nil {
		return nil, tts.SynthesisFailed(OpenAIName, "read speech response", err)
	}
	buf, err := audio.FromPCM16(pcm, openAIPCMRate, 1)
	if err != nil {
		return nil, tts.NewError(tts.CodeDecodeFailed, OpenAIName, "unreadable PCM response", err)
	}
	if len(buf.Samples) == 0 {
		return nil, tts.SynthesisFailed(OpenAIName, "empty speech response", nil)
	}
	return &tts.Result{Audio: buf}, nil
}

// Info implements tts.Backend.
func (e *OpenAIEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       OpenAIName,
		Model:      e.cfg.Model + "/" + e.cfg.Voice,
		Device:     "cloud",
		SampleRate: openAIPCMRate,
		Online:     true,
	}
}

// Close implements tts.Backend.
func (e *OpenAIEngine) Close() error {
	return nil
}
