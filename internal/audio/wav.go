package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
)

// ErrInvalidWAV is returned when data does not parse as a PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav data")

// EncodeWAV writes b as a mono 16-bit PCM WAV file.
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	enc := wav.NewEncoder(w, b.SampleRate, wavBitDepth, 1, wavPCMFormat)

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(toInt16(s))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WAVBytes encodes b into an in-memory WAV file.
func WAVBytes(b *Buffer) ([]byte, error) {
	ws := &seekBuffer{}
	if err := EncodeWAV(ws, b); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// DecodeWAV reads a PCM WAV file of any channel count and integer bit depth
// and returns it as mono.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	depth := int(d.BitDepth)
	channels := int(d.NumChans)
	if depth == 0 || channels == 0 || d.SampleRate == 0 {
		return nil, fmt.Errorf("%w: missing format chunk", ErrInvalidWAV)
	}

	scale := float32(int64(1) << (depth - 1))
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		if depth == 8 {
			v -= 128
		}
		samples[i] = float32(v) / scale
	}
	return &Buffer{
		Samples:    Downmix(samples, channels),
		SampleRate: int(d.SampleRate),
	}, nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory file.
func DecodeWAVBytes(data []byte) (*Buffer, error) {
	return DecodeWAV(bytes.NewReader(data))
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes once all samples are written.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(s.pos) + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = int(abs)
	return abs, nil
}
