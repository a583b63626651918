package tts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hollyai/holly-voice/internal/audio"
)

type nopBackend struct {
	closed atomic.Bool
}

func (b *nopBackend) Generate(context.Context, string, string) (*Result, error) {
	return &Result{Audio: audio.Silence(0.1, 8000)}, nil
}

func (b *nopBackend) Info() EngineInfo { return EngineInfo{Name: "nop"} }

func (b *nopBackend) Close() error {
	b.closed.Store(true)
	return nil
}

func TestHandle_ConstructsOnce(t *testing.T) {
	var builds atomic.Int32
	backend := &nopBackend{}
	h := NewHandle(func(context.Context) (Backend, error) {
		builds.Add(1)
		return backend, nil
	})

	if h.Loaded() {
		t.Fatal("handle loaded before first use")
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := h.Get(context.Background())
			if err != nil || b != backend {
				t.Errorf("Get() = %v, %v", b, err)
			}
		}()
	}
	wg.Wait()

	if n := builds.Load(); n != 1 {
		t.Errorf("factory called %d times, want 1", n)
	}
	if !h.Loaded() {
		t.Error("handle not loaded after Get")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !backend.closed.Load() {
		t.Error("backend not closed")
	}
	if h.Loaded() {
		t.Error("handle still loaded after Close")
	}
}

func TestHandle_RetriesFailedConstruction(t *testing.T) {
	var calls int
	h := NewHandle(func(context.Context) (Backend, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("server not up")
		}
		return &nopBackend{}, nil
	})

	_, err := h.Get(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("got %v, want a BACKEND_UNAVAILABLE error", err)
	}
	if h.Loaded() {
		t.Error("failed construction was memoized")
	}

	if _, err := h.Get(context.Background()); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}

func TestHandle_KeepsTypedErrors(t *testing.T) {
	want := NewError(CodeSynthesisFailed, "x", "boom", nil)
	h := NewHandle(func(context.Context) (Backend, error) { return nil, want })

	_, err := h.Get(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("got %v, want the factory's error", err)
	}
}

func TestHandle_LoadedDoesNotWaitForConstruction(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := NewHandle(func(context.Context) (Backend, error) {
		close(started)
		<-release
		return &nopBackend{}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := h.Get(context.Background())
		done <- err
	}()
	<-started

	loaded := make(chan bool, 1)
	go func() { loaded <- h.Loaded() }()
	select {
	case got := <-loaded:
		if got {
			t.Error("reported loaded while construction is running")
		}
	case <-time.After(time.Second):
		t.Fatal("Loaded blocked on a running construction")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !h.Loaded() {
		t.Error("not loaded after construction")
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if h.Loaded() {
		t.Error("still loaded after Close")
	}
}
