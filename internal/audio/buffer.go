package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrSampleRateMismatch is returned when buffers with different sample rates
// are joined.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")

// Buffer is mono audio with samples in the range [-1, 1].
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Seconds returns the playback length of the buffer.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// PCM16 returns the samples as little-endian signed 16-bit PCM, clipping
// anything outside [-1, 1].
func (b *Buffer) PCM16() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(s))) //nolint:gosec
	}
	return out
}

func toInt16(s float32) int16 {
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(math.Round(float64(s) * math.MaxInt16))
}

// FromPCM16 builds a buffer from little-endian signed 16-bit PCM with the given
// channel count. Multi-channel input is averaged down to mono.
func FromPCM16(data []byte, sampleRate, channels int) (*Buffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:])) //nolint:gosec
		samples[i] = float32(v) / 32768
	}
	return &Buffer{Samples: Downmix(samples, channels), SampleRate: sampleRate}, nil
}

// Downmix averages interleaved frames into a single channel.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[f*channels+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// Silence returns seconds of zero-valued samples.
func Silence(seconds float64, sampleRate int) *Buffer {
	n := int(math.Round(seconds * float64(sampleRate)))
	if n < 0 {
		n = 0
	}
	return &Buffer{Samples: make([]float32, n), SampleRate: sampleRate}
}

// Tone returns a sine wave of the given frequency and peak amplitude.
func Tone(freq, seconds, amplitude float64, sampleRate int) *Buffer {
	n := int(math.Round(seconds * float64(sampleRate)))
	samples := make([]float32, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*t))
	}
	return &Buffer{Samples: samples, SampleRate: sampleRate}
}

// Concat joins buffers end to end. All buffers must share a sample rate.
func Concat(bufs ...*Buffer) (*Buffer, error) {
	if len(bufs) == 0 {
		return nil, errors.New("nothing to concatenate")
	}
	rate := bufs[0].SampleRate
	total := 0
	for _, b := range bufs {
		if b.SampleRate != rate {
			return nil, fmt.Errorf("%w: %d != %d", ErrSampleRateMismatch, b.SampleRate, rate)
		}
		total += len(b.Samples)
	}
	out := make([]float32, 0, total)
	for _, b := range bufs {
		out = append(out, b.Samples...)
	}
	return &Buffer{Samples: out, SampleRate: rate}, nil
}
