package engines

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

const (
	// DefaultPiperModel is the voice model used for HOLLY.
	DefaultPiperModel = "en_US-amy-medium"

	// DefaultPiperModelURL is where missing models are downloaded from.
	DefaultPiperModelURL = "https://github.com/rhasspy/piper/releases/download/v1.2.0"
)

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable (defaults to "piper" on PATH).
	Binary string

	// Model is the voice model name, without extension.
	Model string

	// ModelDir holds <Model>.onnx and <Model>.onnx.json.
	ModelDir string

	// ModelURL is the base URL models are downloaded from when missing.
	ModelURL string

	// LengthScale slows (>1) or speeds up (<1) speech; 0 keeps the model's
	// default.
	LengthScale float64

	// Timeout bounds one synthesis run (defaults to 30s).
	Timeout time.Duration
}

// PiperEngine synthesizes by running the Piper binary once per request.
// It uses a fresh process per synthesis with pre-configured stdin.
type PiperEngine struct {
	cfg       PiperConfig
	binary    string
	modelPath string
	logger    *log.Logger
}

// NewPiperEngine locates the binary and makes sure the model files exist,
// downloading them once if needed.
func NewPiperEngine(ctx context.Context, config PiperConfig, client *http.Client, logger *log.Logger) (*PiperEngine, error) {
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.Model == "" {
		config.Model = DefaultPiperModel
	}
	if config.ModelDir == "" {
		config.ModelDir = filepath.Join(os.TempDir(), "piper_models")
	}
	if config.ModelURL == "" {
		config.ModelURL = DefaultPiperModelURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, tts.Unavailable(PiperName, "piper not found in PATH", err)
	}

	e := &PiperEngine{
		cfg:       config,
		binary:    binary,
		modelPath: filepath.Join(config.ModelDir, config.Model+".onnx"),
		logger:    logger.WithPrefix(PiperName),
	}

	base := strings.TrimRight(config.ModelURL, "/") + "/" + config.Model
	for _, ext := range []string{".onnx", ".onnx.json"} {
		dest := filepath.Join(config.ModelDir, config.Model+ext)
		if fileExists(dest) {
			continue
		}
		e.logger.Info("Downloading Piper model", "model", config.Model+ext)
		if err := downloadFile(ctx, client, base+ext, dest, ""); err != nil {
			return nil, tts.Unavailable(PiperName, "model download failed", err)
		}
	}

	return e, nil
}

// Generate implements tts.Backend.
func (e *PiperEngine) Generate(ctx context.Context, text, _ string) (*tts.Result, error) {
	out, err := os.CreateTemp("", "holly-piper-*.wav")
	if err != nil {
		return nil, tts.SynthesisFailed(PiperName, "create output file", err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer func() { _ = os.Remove(outPath) }()

	args := []string{"--model", e.modelPath, "--output_file", outPath}
	if e.cfg.LengthScale > 0 {
		args = append(args, "--length_scale", strconv.FormatFloat(e.cfg.LengthScale, 'f', 2, 64))
	}

	// CRITICAL: Create command with timeout context
	// This prevents hanging processes
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	output, err := runCommand(ctx, e.binary, args, text)
	if err != nil {
		msg := "piper failed"
		if output = strings.TrimSpace(output); output != "" {
			msg = fmt.Sprintf("piper failed: %s", lastLine(output))
		}
		return nil, tts.SynthesisFailed(PiperName, msg, err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, tts.SynthesisFailed(PiperName, "piper produced no output file", err)
	}
	defer func() { _ = f.Close() }()

	buf, err := audio.DecodeWAV(f)
	if err != nil {
		return nil, tts.NewError(tts.CodeDecodeFailed, PiperName, "unreadable piper output", err)
	}
	if len(buf.Samples) == 0 {
		return nil, tts.SynthesisFailed(PiperName, "piper produced no audio", nil)
	}
	return &tts.Result{Audio: buf}, nil
}

// Info implements tts.Backend.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       PiperName,
		Model:      e.cfg.Model,
		Device:     "cpu",
		SampleRate: 22050,
	}
}

// Close implements tts.Backend.
func (e *PiperEngine) Close() error {
	return nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
