package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to signed 16-bit little-endian stereo.
const mp3FrameBytes = 4

// ReadMP3 decodes an MP3 stream into mono 16-bit samples.
func ReadMP3(r io.Reader) ([]int16, Header, error) {
	var header Header

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, header, fmt.Errorf("%w: mp3: %v", ErrUnsupportedFormat, err)
	}
	header.SampleRate = dec.SampleRate()
	header.Channels = 2
	header.BitDepth = 16

	pcm, err := io.ReadAll(dec)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, header, fmt.Errorf("read PCM data: %w", err)
	}

	samples := downmixStereo16(pcm)
	header.NumSamples = len(samples)
	return samples, header, nil
}

// ReadMP3File is a convenience wrapper that opens a file path.
func ReadMP3File(path string) ([]int16, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer f.Close()
	return ReadMP3(f)
}

// downmixStereo16 averages interleaved little-endian stereo frames.
// A trailing partial frame is dropped.
func downmixStereo16(pcm []byte) []int16 {
	n := len(pcm) / mp3FrameBytes
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		l := int(int16(binary.LittleEndian.Uint16(pcm[i*4:])))
		r := int(int16(binary.LittleEndian.Uint16(pcm[i*4+2:])))
		out[i] = int16((l + r) / 2)
	}
	return out
}
