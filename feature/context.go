package feature

import "fmt"

// Frames is a row-major [NFrames][Width] block of acoustic model input.
type Frames struct {
	Data    []float32
	NFrames int
	Width   int
}

// Row returns frame i.
func (f *Frames) Row(i int) []float32 {
	return f.Data[i*f.Width : (i+1)*f.Width]
}

// FrameWidth returns the width of one stacked frame: the centre frame plus
// ncontext frames on each side, ncep coefficients each.
func FrameWidth(ncep, ncontext int) int {
	return ncep * (2*ncontext + 1)
}

// StackContext concatenates every frame with its ncontext predecessors and
// successors, in time order. Neighbours before the first or after the last
// frame replicate the nearest real frame. All frames must have the same length.
func StackContext(coeffs [][]float64, ncontext int) *Frames {
	if len(coeffs) == 0 {
		return &Frames{}
	}
	ncep := len(coeffs[0])
	width := FrameWidth(ncep, ncontext)
	out := &Frames{
		Data:    make([]float32, len(coeffs)*width),
		NFrames: len(coeffs),
		Width:   width,
	}
	last := len(coeffs) - 1
	for t := range coeffs {
		row := out.Row(t)
		for k := -ncontext; k <= ncontext; k++ {
			src := coeffs[min(max(t+k, 0), last)]
			dst := row[(k+ncontext)*ncep : (k+ncontext+1)*ncep]
			for i, v := range src {
				dst[i] = float32(v)
			}
		}
	}
	return out
}

// AudioToInputVector converts 16-bit PCM at sampleRate into stacked feature
// frames of width FrameWidth(ncep, ncontext). sampleRate and ncep override
// cfg.SampleRate and cfg.NumCepstra.
func AudioToInputVector(samples []int16, sampleRate, ncep, ncontext int, cfg Config) (*Frames, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	if ncontext < 0 {
		return nil, fmt.Errorf("%w: negative context %d", ErrInvalidConfig, ncontext)
	}
	cfg.SampleRate = sampleRate
	cfg.NumCepstra = ncep

	pcm := make([]float64, len(samples))
	for i, s := range samples {
		pcm[i] = float64(s) / 32768
	}
	mfccs, err := Extract(pcm, cfg)
	if err != nil {
		return nil, err
	}

	frames := StackContext(Subsample(mfccs, cfg.Stride), ncontext)
	if cfg.Whiten {
		buf := make([]float64, frames.Width)
		for t := 0; t < frames.NFrames; t++ {
			row := frames.Row(t)
			for i, v := range row {
				buf[i] = float64(v)
			}
			whiten(buf)
			for i, v := range buf {
				row[i] = float32(v)
			}
		}
	}
	return frames, nil
}
