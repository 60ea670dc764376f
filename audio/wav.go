package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for containers or encodings that cannot be decoded.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Header describes the decoded stream before downmixing.
type Header struct {
	SampleRate int
	Channels   int
	BitDepth   int
	NumSamples int // per channel
}

// ReadWAV decodes a PCM WAV stream into mono 16-bit samples.
// Multi-channel input is averaged; other bit depths are rescaled to 16 bits.
func ReadWAV(r io.ReadSeeker) ([]int16, Header, error) {
	var header Header

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, header, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != 1 {
		return nil, header, fmt.Errorf("%w: audio format %d (only PCM=1 supported)", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, header, fmt.Errorf("read PCM data: %w", err)
	}

	header.SampleRate = int(dec.SampleRate)
	header.Channels = int(dec.NumChans)
	header.BitDepth = int(dec.BitDepth)
	if header.Channels < 1 {
		return nil, header, fmt.Errorf("%w: channel count %d", ErrUnsupportedFormat, header.Channels)
	}
	switch header.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, header, fmt.Errorf("%w: bits per sample %d", ErrUnsupportedFormat, header.BitDepth)
	}

	samples := downmix(buf, header.Channels, header.BitDepth)
	header.NumSamples = len(samples)
	return samples, header, nil
}

// ReadWAVFile is a convenience wrapper that opens a file path.
func ReadWAVFile(path string) ([]int16, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer f.Close()
	return ReadWAV(f)
}

// ReadFile decodes a WAV or MP3 file, chosen by extension.
func ReadFile(path string) ([]int16, Header, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ReadWAVFile(path)
	case ".mp3":
		return ReadMP3File(path)
	default:
		return nil, Header{}, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// downmix averages interleaved channels and rescales to 16 bits.
func downmix(buf *goaudio.IntBuffer, channels, bitDepth int) []int16 {
	n := len(buf.Data) / channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		out[i] = to16(sum/channels, bitDepth)
	}
	return out
}

func to16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned with a 128 midpoint.
		v = (v - 128) << 8
	case 24:
		v >>= 8
	case 32:
		v >>= 16
	}
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}
