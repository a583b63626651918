package audio

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeMP3 decodes an MP3 stream into mono samples. go-mp3 always yields
// interleaved 16-bit stereo.
func DecodeMP3(r io.Reader) (*Buffer, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return FromPCM16(pcm, d.SampleRate(), 2)
}
