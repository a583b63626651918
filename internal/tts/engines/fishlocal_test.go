package engines

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hollyai/holly-voice/internal/audio"
	"github.com/hollyai/holly-voice/internal/tts"
)

// fakeCheckpoint creates a directory holding every checkpoint file.
func fakeCheckpoint(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range fishCheckpointFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("weights"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

type fishServer struct {
	*httptest.Server
	fail     atomic.Bool
	requests atomic.Int32
	last     atomic.Value // fishLocalRequest
}

func newFishServer(t *testing.T) *fishServer {
	t.Helper()
	fs := &fishServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/tts", func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		var req fishLocalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fs.last.Store(req)
		if fs.fail.Load() {
			http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(wavBody(t, audio.Tone(200, 0.2, 0.4, 24000)))
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func TestFishLocal_Generate(t *testing.T) {
	srv := newFishServer(t)
	refDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(refDir, "holly.wav"), wavBody(t, audio.Silence(0.1, 24000)), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewFishLocal(context.Background(), FishLocalConfig{
		URL:           srv.URL,
		Checkpoint:    fakeCheckpoint(t),
		ReferenceDir:  refDir,
		ReferenceText: "Female voice in her 30s",
	}, srv.Client(), quietLogger())
	if err != nil {
		t.Fatalf("NewFishLocal failed: %v", err)
	}

	res, err := f.Generate(context.Background(), "Analyzing that for you...", "holly")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Fallback {
		t.Error("speech flagged as fallback")
	}
	if len(res.Audio.Samples) != 4800 {
		t.Errorf("got %d samples, want 4800", len(res.Audio.Samples))
	}

	req := srv.last.Load().(fishLocalRequest)
	if req.MaxNewTokens != 1024 || req.ChunkLength != 200 || req.TopP != 0.8 || req.RepetitionPenalty != 1.1 || req.Temperature != 0.8 {
		t.Errorf("unexpected inference parameters: %+v", req)
	}
	if len(req.References) != 1 || req.References[0].Text != "Female voice in her 30s" || len(req.References[0].Audio) == 0 {
		t.Errorf("reference not sent: %+v", req.References)
	}
}

func TestFishLocal_InferenceFailureReturnsTone(t *testing.T) {
	srv := newFishServer(t)
	f, err := NewFishLocal(context.Background(), FishLocalConfig{URL: srv.URL, Checkpoint: fakeCheckpoint(t)}, srv.Client(), quietLogger())
	if err != nil {
		t.Fatalf("NewFishLocal failed: %v", err)
	}
	srv.fail.Store(true)

	res, err := f.Generate(context.Background(), "Hello", "holly")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !res.Fallback {
		t.Error("tone not flagged as fallback")
	}
	if res.Audio.SampleRate != 24000 || len(res.Audio.Samples) != 12000 {
		t.Errorf("tone: got %d samples at %d Hz, want 12000 at 24000 Hz", len(res.Audio.Samples), res.Audio.SampleRate)
	}
}

func TestFishLocal_CancelledCallerGetsError(t *testing.T) {
	srv := newFishServer(t)
	f, err := NewFishLocal(context.Background(), FishLocalConfig{URL: srv.URL, Checkpoint: fakeCheckpoint(t)}, srv.Client(), quietLogger())
	if err != nil {
		t.Fatalf("NewFishLocal failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Generate(ctx, "Hello", "holly"); err == nil {
		t.Error("cancelled request returned audio")
	}
}

func TestFishLocal_Unavailable(t *testing.T) {
	srv := newFishServer(t)

	t.Run("missing checkpoint", func(t *testing.T) {
		_, err := NewFishLocal(context.Background(), FishLocalConfig{
			URL:           srv.URL,
			CheckpointDir: t.TempDir(),
		}, srv.Client(), quietLogger())
		if !tts.IsUnavailable(err) {
			t.Errorf("got %v, want BACKEND_UNAVAILABLE", err)
		}
	})

	t.Run("missing decoder", func(t *testing.T) {
		_, err := NewFishLocal(context.Background(), FishLocalConfig{
			URL:               srv.URL,
			Checkpoint:        fakeCheckpoint(t),
			DecoderCheckpoint: filepath.Join(t.TempDir(), "decoder.pth"),
		}, srv.Client(), quietLogger())
		if !tts.IsUnavailable(err) {
			t.Errorf("got %v, want BACKEND_UNAVAILABLE", err)
		}
	})

	t.Run("server down", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		url := down.URL
		down.Close()

		_, err := NewFishLocal(context.Background(), FishLocalConfig{
			URL:        url,
			Checkpoint: fakeCheckpoint(t),
		}, http.DefaultClient, quietLogger())
		if !tts.IsUnavailable(err) {
			t.Errorf("got %v, want BACKEND_UNAVAILABLE", err)
		}
	})
}
