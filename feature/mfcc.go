// Package feature turns PCM audio into the acoustic model's input: MFCC
// frames, subsampled and stacked with their temporal context.
package feature

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyInput is returned when there are no samples to frame.
	ErrEmptyInput = errors.New("feature: empty input")
	// ErrInvalidConfig is returned for parameters that cannot produce features.
	ErrInvalidConfig = errors.New("feature: invalid config")
)

// Config holds all MFCC extraction parameters.
type Config struct {
	SampleRate    int
	FrameLenMs    float64 // frame length in milliseconds
	FrameShiftMs  float64 // frame shift in milliseconds
	PreEmphCoeff  float64
	NumMelFilters int
	NumCepstra    int
	LowFreq       float64
	HighFreq      float64 // 0 means SampleRate/2
	FFTSize       int     // raised to the next power of two >= frame length
	CepLifter     int
	AppendEnergy  bool // replace c0 with the log frame energy
	UseCMN        bool // cepstral mean normalization
	Stride        int  // keep every Stride-th frame before context stacking
	Whiten        bool // per-frame zero mean, unit variance after stacking
}

// DefaultConfig returns the front-end the reference English models were trained with.
func DefaultConfig() Config {
	return Config{
		SampleRate:    16000,
		FrameLenMs:    25.0,
		FrameShiftMs:  10.0,
		PreEmphCoeff:  0.97,
		NumMelFilters: 26,
		NumCepstra:    26,
		LowFreq:       0,
		HighFreq:      0,
		FFTSize:       512,
		CepLifter:     22,
		AppendEnergy:  true,
		Stride:        2,
		Whiten:        true,
	}
}

// Validate reports parameters that cannot produce features.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case c.FrameLenMs <= 0 || c.FrameShiftMs <= 0:
		return fmt.Errorf("%w: frame length %.1fms shift %.1fms", ErrInvalidConfig, c.FrameLenMs, c.FrameShiftMs)
	case c.NumMelFilters <= 0:
		return fmt.Errorf("%w: %d mel filters", ErrInvalidConfig, c.NumMelFilters)
	case c.NumCepstra <= 0 || c.NumCepstra > c.NumMelFilters:
		return fmt.Errorf("%w: %d cepstra with %d mel filters", ErrInvalidConfig, c.NumCepstra, c.NumMelFilters)
	case c.Stride < 0:
		return fmt.Errorf("%w: stride %d", ErrInvalidConfig, c.Stride)
	}
	if c.frameLen() < 1 || c.frameShift() < 1 {
		return fmt.Errorf("%w: frame shorter than one sample at %d Hz", ErrInvalidConfig, c.SampleRate)
	}
	return nil
}

func (c Config) frameLen() int {
	return int(c.FrameLenMs * float64(c.SampleRate) / 1000.0)
}

func (c Config) frameShift() int {
	return int(c.FrameShiftMs * float64(c.SampleRate) / 1000.0)
}

func (c Config) fftSize() int {
	return nextPow2(max(c.FFTSize, c.frameLen()))
}

// Extract computes MFCC features from raw audio samples.
// Returns a matrix of shape [numFrames][NumCepstra]. Any non-empty input
// yields at least one frame.
func Extract(samples []float64, cfg Config) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frameLen := cfg.frameLen()
	fftSize := cfg.fftSize()

	// 1. Pre-emphasis and framing
	frames := Frame(PreEmphasize(samples, cfg.PreEmphCoeff), frameLen, cfg.frameShift())

	// 2. Reusable workspace
	melFB := NewMelFilterbank(cfg.NumMelFilters, fftSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq)
	fftWS := newFFTWorkspace(fftSize)
	dctTbl := newDCTTable(cfg.NumCepstra, cfg.NumMelFilters)
	melBuf := make([]float64, cfg.NumMelFilters)
	var liftTbl *lifterTable
	if cfg.CepLifter > 0 {
		liftTbl = newLifterTable(cfg.NumCepstra, cfg.CepLifter)
	}
	hammWin := getHammingWindow(frameLen)

	// 3. For each frame: window+FFT -> power spectrum -> Mel -> DCT -> lifter -> energy
	mfccs := make([][]float64, len(frames))
	cepAll := make([]float64, len(frames)*cfg.NumCepstra)
	for i, frame := range frames {
		fftWS.computePowerSpectrum(frame, hammWin)
		melFB.applyInto(fftWS.power, melBuf)
		cepstra := cepAll[i*cfg.NumCepstra : (i+1)*cfg.NumCepstra]
		dctTbl.applyInto(melBuf, cepstra)
		if liftTbl != nil {
			liftTbl.apply(cepstra)
		}
		if cfg.AppendEnergy {
			energy := 0.0
			for _, p := range fftWS.power {
				energy += p
			}
			cepstra[0] = math.Log(max(energy, energyFloor))
		}
		mfccs[i] = cepstra
	}

	// 4. Cepstral mean normalization
	if cfg.UseCMN {
		ApplyCMN(mfccs)
	}
	return mfccs, nil
}

// Subsample keeps every stride-th frame starting with the first.
// stride <= 1 returns frames unchanged.
func Subsample(frames [][]float64, stride int) [][]float64 {
	if stride <= 1 {
		return frames
	}
	out := make([][]float64, 0, (len(frames)+stride-1)/stride)
	for i := 0; i < len(frames); i += stride {
		out = append(out, frames[i])
	}
	return out
}
