package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestSilence(t *testing.T) {
	tests := []struct {
		seconds float64
		rate    int
		want    int
	}{
		{5, 24000, 120000},
		{0.35, 24000, 8400},
		{0, 24000, 0},
		{1, 22050, 22050},
	}

	for _, tt := range tests {
		b := Silence(tt.seconds, tt.rate)
		if len(b.Samples) != tt.want {
			t.Errorf("Silence(%v, %d): got %d samples, want %d", tt.seconds, tt.rate, len(b.Samples), tt.want)
		}
		for i, s := range b.Samples {
			if s != 0 {
				t.Fatalf("sample %d is %v, want 0", i, s)
			}
		}
	}
}

func TestTone(t *testing.T) {
	b := Tone(440, 0.5, 0.3, 24000)
	if len(b.Samples) != 12000 {
		t.Fatalf("got %d samples, want 12000", len(b.Samples))
	}

	var peak float32
	for _, s := range b.Samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	if peak > 0.3001 || peak < 0.29 {
		t.Errorf("peak amplitude %v, want ~0.3", peak)
	}
	if got := b.Seconds(); got != 0.5 {
		t.Errorf("Seconds() = %v, want 0.5", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	in := Tone(220, 0.25, 0.8, 22050)

	data, err := WAVBytes(in)
	if err != nil {
		t.Fatalf("WAVBytes failed: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header: %q", data[:12])
	}

	out, err := DecodeWAVBytes(data)
	if err != nil {
		t.Fatalf("DecodeWAVBytes failed: %v", err)
	}
	if out.SampleRate != in.SampleRate {
		t.Errorf("sample rate: got %d, want %d", out.SampleRate, in.SampleRate)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("sample count: got %d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if d := math.Abs(float64(in.Samples[i] - out.Samples[i])); d > 1.0/16384 {
			t.Fatalf("sample %d: got %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAVBytes([]byte("this is definitely not a wav file"))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("got %v, want ErrInvalidWAV", err)
	}
}

func TestFromPCM16Downmix(t *testing.T) {
	// two stereo frames: (16384, -16384) and (32767, 32767)
	pcm := []byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F, 0xFF, 0x7F}
	b, err := FromPCM16(pcm, 24000, 2)
	if err != nil {
		t.Fatalf("FromPCM16 failed: %v", err)
	}
	if len(b.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(b.Samples))
	}
	if b.Samples[0] != 0 {
		t.Errorf("frame 0: got %v, want 0", b.Samples[0])
	}
	if b.Samples[1] < 0.99 {
		t.Errorf("frame 1: got %v, want ~1", b.Samples[1])
	}
}

func TestConcat(t *testing.T) {
	a := Silence(0.1, 8000)
	b := Tone(100, 0.1, 0.5, 8000)

	c, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if len(c.Samples) != 1600 {
		t.Errorf("got %d samples, want 1600", len(c.Samples))
	}

	if _, err := Concat(a, Silence(0.1, 16000)); !errors.Is(err, ErrSampleRateMismatch) {
		t.Errorf("got %v, want ErrSampleRateMismatch", err)
	}
}

func TestPCM16Clips(t *testing.T) {
	b := &Buffer{Samples: []float32{2, -2}, SampleRate: 8000}
	pcm := b.PCM16()
	got := []int16{
		int16(binary.LittleEndian.Uint16(pcm[0:])),
		int16(binary.LittleEndian.Uint16(pcm[2:])),
	}
	if got[0] != math.MaxInt16 || got[1] != -math.MaxInt16 {
		t.Errorf("got %v, want clipped values", got)
	}
}
