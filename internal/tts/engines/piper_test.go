package engines

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

// fakePiper writes a shell script standing in for the piper binary and a
// model directory that needs no download.
func fakePiper(t *testing.T, script string) PiperConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake piper is a shell script")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "piper")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}

	models := filepath.Join(dir, "models")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".onnx", ".onnx.json"} {
		if err := os.WriteFile(filepath.Join(models, DefaultPiperModel+ext), []byte("model"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return PiperConfig{Binary: bin, ModelDir: models, Timeout: 5 * time.Second}
}

func TestPiper_Generate(t *testing.T) {
	src := filepath.Join(t.TempDir(), "speech.wav")
	if err := os.WriteFile(src, wavBody(t, audio.Tone(300, 0.5, 0.5, 22050)), 0o644); err != nil {
		t.Fatal(err)
	}
	// args: --model M --output_file OUT; text arrives on stdin
	script := fmt.Sprintf("input=$(cat)\n[ \"$input\" = \"Success! Task completed.\" ] || exit 3\ncp %q \"$4\"\n", src)
	cfg := fakePiper(t, script)

	e, err := NewPiperEngine(context.Background(), cfg, http.DefaultClient, quietLogger())
	if err != nil {
		t.Fatalf("NewPiperEngine failed: %v", err)
	}

	res, err := e.Generate(context.Background(), "Success! Task completed.", "holly")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Audio.SampleRate != 22050 {
		t.Errorf("sample rate: got %d, want 22050", res.Audio.SampleRate)
	}
	if len(res.Audio.Samples) != 11025 {
		t.Errorf("got %d samples, want 11025", len(res.Audio.Samples))
	}
}

func TestPiper_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		code    tts.ErrorCode
		msg     string
	}{
		{"non-zero exit", "cat >/dev/null\necho 'model is corrupt' >&2\nexit 1\n", 0, tts.CodeSynthesisFailed, "model is corrupt"},
		{"no output file", "cat >/dev/null\nrm -f \"$4\"\n", 0, tts.CodeSynthesisFailed, ""},
		{"garbage output", "cat >/dev/null\necho nope > \"$4\"\n", 0, tts.CodeDecodeFailed, ""},
		{"hangs", "sleep 10\n", 200 * time.Millisecond, tts.CodeTimeout, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fakePiper(t, tt.script)
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}
			e, err := NewPiperEngine(context.Background(), cfg, http.DefaultClient, quietLogger())
			if err != nil {
				t.Fatalf("NewPiperEngine failed: %v", err)
			}

			start := time.Now()
			_, err = e.Generate(context.Background(), "I encountered an error.", "holly")
			if got := tts.CodeOf(err); got != tt.code {
				t.Fatalf("code: got %q (%v), want %q", got, err, tt.code)
			}
			if tt.msg != "" && !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
			if time.Since(start) > 5*time.Second {
				t.Error("subprocess was not stopped at the deadline")
			}
		})
	}
}

func TestPiper_MissingBinary(t *testing.T) {
	_, err := NewPiperEngine(context.Background(), PiperConfig{Binary: "holly-no-such-piper"}, http.DefaultClient, quietLogger())
	if !tts.IsUnavailable(err) {
		t.Errorf("got %v, want BACKEND_UNAVAILABLE", err)
	}
}

func TestPiper_DownloadsModel(t *testing.T) {
	cfg := fakePiper(t, "exit 0\n")
	cfg.ModelDir = filepath.Join(t.TempDir(), "fresh")

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing/") {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte("model bytes"))
	}))
	defer srv.Close()
	cfg.ModelURL = srv.URL + "/v1.2.0"

	if _, err := NewPiperEngine(context.Background(), cfg, srv.Client(), quietLogger()); err != nil {
		t.Fatalf("NewPiperEngine failed: %v", err)
	}
	want := []string{"/v1.2.0/en_US-amy-medium.onnx", "/v1.2.0/en_US-amy-medium.onnx.json"}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("downloaded %v, want %v", paths, want)
	}
	for _, ext := range []string{".onnx", ".onnx.json"} {
		if !fileExists(filepath.Join(cfg.ModelDir, DefaultPiperModel+ext)) {
			t.Errorf("model file %s missing after download", ext)
		}
	}

	// a failed download makes the backend unavailable
	cfg.ModelDir = filepath.Join(t.TempDir(), "broken")
	cfg.ModelURL = srv.URL + "/missing"
	if _, err := NewPiperEngine(context.Background(), cfg, srv.Client(), quietLogger()); !tts.IsUnavailable(err) {
		t.Errorf("got %v, want BACKEND_UNAVAILABLE", err)
	}
}
