package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

// Player plays buffers on the default output device.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	pollEvery  time.Duration

	mu     sync.Mutex
	active *oto.Player
	// data must stay reachable while oto reads from it
	data []byte
}

// NewPlayer opens the output device at sampleRate. Because the device can
// only be opened once, later calls must use the same rate.
func NewPlayer(sampleRate int) (*Player, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
			otoRate = sampleRate
		}
	})
	if otoErr != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("output already opened at %d Hz, cannot play %d Hz", otoRate, sampleRate)
	}
	return &Player{ctx: otoCtx, sampleRate: sampleRate, pollEvery: 10 * time.Millisecond}, nil
}

// Play blocks until b has finished playing or ctx is done.
func (p *Player) Play(ctx context.Context, b *Buffer) error {
	if len(b.Samples) == 0 {
		return errors.New("audio data is empty")
	}
	if b.SampleRate != p.sampleRate {
		return fmt.Errorf("%w: player %d Hz, audio %d Hz", ErrSampleRateMismatch, p.sampleRate, b.SampleRate)
	}

	p.mu.Lock()
	p.data = b.PCM16()
	p.active = p.ctx.NewPlayer(bytes.NewReader(p.data))
	pl := p.active
	p.mu.Unlock()

	defer p.stop()
	pl.Play()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()
	for pl.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (p *Player) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		p.active.Pause()
		_ = p.active.Close()
		p.active = nil
	}
	p.data = nil
}
