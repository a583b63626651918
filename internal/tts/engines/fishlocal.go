package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

const (
	// DefaultFishCheckpoint is the Hugging Face repository of the model.
	DefaultFishCheckpoint = "fishaudio/fish-speech-1.5"

	// DefaultFishServerURL is where the local inference server listens.
	DefaultFishServerURL = "http://127.0.0.1:8080"

	fishDecoderFile = "firefly-gan-vq-fsq-8x1024-21hz-generator.pth"

	// Placeholder played when local inference fails.
	fallbackToneHz        = 440
	fallbackToneSeconds   = 0.5
	fallbackToneAmplitude = 0.3

	huggingFaceURL = "https://huggingface.co"
)

// fishCheckpointFiles are the files a usable checkpoint directory holds.
var fishCheckpointFiles = []string{
	"config.json",
	"model.pth",
	"special_tokens.json",
	"tokenizer.tiktoken",
	fishDecoderFile,
}

// FishLocalConfig holds configuration for the local Fish-Speech backend.
type FishLocalConfig struct {
	// URL of the Fish-Speech API server (defaults to DefaultFishServerURL).
	URL string

	// Checkpoint is a Hugging Face repository id or a local directory
	// (LLAMA_CHECKPOINT).
	Checkpoint string

	// DecoderCheckpoint overrides the decoder weights file
	// (DECODER_CHECKPOINT).
	DecoderCheckpoint string

	// CheckpointDir is where a downloaded checkpoint is stored.
	CheckpointDir string

	// AutoDownload fetches a missing checkpoint once at construction.
	AutoDownload bool

	// HFToken authorizes Hugging Face downloads, if set.
	HFToken string

	// ReferenceDir holds reference recordings; the first *.wav is used.
	ReferenceDir string

	// ReferenceText describes the voice in the reference recording.
	ReferenceText string

	// Timeout bounds one synthesis request (defaults to 30s).
	Timeout time.Duration
}

// FishLocal drives a Fish-Speech 1.5 inference server running on this
// machine, conditioning every request on the HOLLY reference recording.
type FishLocal struct {
	cfg       FishLocalConfig
	client    *http.Client
	logger    *log.Logger
	device    string
	reference []byte
}

type fishReference struct {
	Audio []byte `json:"audio"`
	Text  string `json:"text"`
}

type fishLocalRequest struct {
	Text              string          `json:"text"`
	ChunkLength       int             `json:"chunk_length"`
	Format            string          `json:"format"`
	References        []fishReference `json:"references"`
	Normalize         bool            `json:"normalize"`
	Streaming         bool            `json:"streaming"`
	MaxNewTokens      int             `json:"max_new_tokens"`
	TopP              float64         `json:"top_p"`
	RepetitionPenalty float64         `json:"repetition_penalty"`
	Temperature       float64         `json:"temperature"`
}

// NewFishLocal verifies (and if allowed downloads) the checkpoint, loads the
// reference recording and checks that the inference server answers.
func NewFishLocal(ctx context.Context, cfg FishLocalConfig, client *http.Client, logger *log.Logger) (*FishLocal, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultFishServerURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Checkpoint == "" {
		cfg.Checkpoint = DefaultFishCheckpoint
	}
	if cfg.CheckpointDir == "" {
		cfg.CheckpointDir = filepath.Join("checkpoints", filepath.Base(cfg.Checkpoint))
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	f := &FishLocal{
		cfg:    cfg,
		client: client,
		logger: logger.WithPrefix(FishLocalName),
		device: detectDevice(),
	}

	if err := f.ensureCheckpoint(ctx); err != nil {
		return nil, tts.Unavailable(FishLocalName, "model checkpoint unavailable", err)
	}
	if err := f.loadReference(); err != nil {
		return nil, tts.Unavailable(FishLocalName, "reference audio unreadable", err)
	}
	if err := f.probe(ctx); err != nil {
		return nil, tts.Unavailable(FishLocalName, "inference server not reachable at "+cfg.URL, err)
	}

	f.logger.Info("Fish-Speech ready", "server", cfg.URL, "checkpoint", f.cfg.CheckpointDir, "device", f.device)
	return f, nil
}

func (f *FishLocal) ensureCheckpoint(ctx context.Context) error {
	// a checkpoint given as a local directory is used in place
	if st, err := os.Stat(f.cfg.Checkpoint); err == nil && st.IsDir() {
		f.cfg.CheckpointDir = f.cfg.Checkpoint
	}

	if f.cfg.DecoderCheckpoint != "" && !fileExists(f.cfg.DecoderCheckpoint) {
		return fmt.Errorf("decoder checkpoint %s not found", f.cfg.DecoderCheckpoint)
	}

	var missing []string
	for _, name := range fishCheckpointFiles {
		if name == fishDecoderFile && f.cfg.DecoderCheckpoint != "" {
			continue
		}
		if !fileExists(filepath.Join(f.cfg.CheckpointDir, name)) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if !f.cfg.AutoDownload {
		return fmt.Errorf("missing %s in %s", strings.Join(missing, ", "), f.cfg.CheckpointDir)
	}

	f.logger.Info("Downloading model checkpoint", "repo", f.cfg.Checkpoint, "dir", f.cfg.CheckpointDir)
	for _, name := range missing {
		url := fmt.Sprintf("%s/%s/resolve/main/%s", huggingFaceURL, f.cfg.Checkpoint, name)
		if err := downloadFile(ctx, f.client, url, filepath.Join(f.cfg.CheckpointDir, name), f.cfg.HFToken); err != nil {
			return err
		}
	}
	return nil
}

func (f *FishLocal) loadReference() error {
	if f.cfg.ReferenceDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(f.cfg.ReferenceDir, "*.wav"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		f.logger.Info("No reference audio found, using the model's default voice", "dir", f.cfg.ReferenceDir)
		return nil
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return err
	}
	f.reference = data
	f.logger.Debug("Loaded reference audio", "path", matches[0])
	return nil
}

func (f *FishLocal) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL+"/v1/health", nil)
	if err != nil {
		return err
	}
	_, err = doRequest(f.client, req)
	return err
}

// Generate implements tts.Backend. Inference failures produce a short tone
// flagged as fallback; a cancelled caller gets its context error instead.
func (f *FishLocal) Generate(ctx context.Context, text, _ string) (*tts.Result, error) {
	buf, err := f.infer(ctx, text)
	if err == nil {
		return &tts.Result{Audio: buf}, nil
	}
	if ctx.Err() != nil {
		return nil, tts.SynthesisFailed(FishLocalName, "request cancelled", ctx.Err())
	}

	f.logger.Warn("Inference failed, returning placeholder tone", "err", err)
	tone := audio.Tone(fallbackToneHz, fallbackToneSeconds, fallbackToneAmplitude, fishSampleRate)
	return &tts.Result{Audio: tone, Fallback: true}, nil
}

func (f *FishLocal) infer(ctx context.Context, text string) (*audio.Buffer, error) {
	payload := fishLocalRequest{
		Text:              text,
		ChunkLength:       200,
		Format:            "wav",
		Normalize:         true,
		MaxNewTokens:      1024,
		TopP:              0.8,
		RepetitionPenalty: 1.1,
		Temperature:       0.8,
		References:        []fishReference{},
	}
	if f.reference != nil {
		payload.References = append(payload.References, fishReference{Audio: f.reference, Text: f.cfg.ReferenceText})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL+"/v1/tts", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := doRequest(f.client, req)
	if err != nil {
		return nil, err
	}
	buf, err := audio.DecodeWAVBytes(data)
	if err != nil {
		return nil, err
	}
	if len(buf.Samples) == 0 {
		return nil, errors.New("server returned no audio")
	}
	return buf, nil
}

// Info implements tts.Backend.
func (f *FishLocal) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       FishLocalName,
		Model:      f.cfg.Checkpoint,
		Device:     f.device,
		SampleRate: fishSampleRate,
	}
}

// Close implements tts.Backend.
func (f *FishLocal) Close() error {
	return nil
}

// detectDevice reports "cuda" when an NVIDIA driver is installed.
func detectDevice() string {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return "cuda"
	}
	return "cpu"
}
