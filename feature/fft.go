package feature

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fftWorkspace holds reusable buffers for power spectrum computation.
type fftWorkspace struct {
	fft    *fourier.FFT
	buf    []float64    // [fftSize] windowed, zero-padded frame
	coeffs []complex128 // [fftSize/2+1]
	power  []float64    // [fftSize/2+1]
}

func newFFTWorkspace(fftSize int) *fftWorkspace {
	nBins := fftSize/2 + 1
	return &fftWorkspace{
		fft:    fourier.NewFFT(fftSize),
		buf:    make([]float64, fftSize),
		coeffs: make([]complex128, nBins),
		power:  make([]float64, nBins),
	}
}

// computePowerSpectrum loads frame into the buffer with optional windowing,
// zero-pads it to the FFT size and writes |X|^2/N into ws.power.
// Frames longer than the FFT size are truncated.
func (ws *fftWorkspace) computePowerSpectrum(frame []float64, window []float64) {
	n := len(ws.buf)
	frameLen := min(len(frame), n)
	if window != nil {
		for i := 0; i < frameLen; i++ {
			ws.buf[i] = frame[i] * window[i]
		}
	} else {
		copy(ws.buf[:frameLen], frame)
	}
	clear(ws.buf[frameLen:])

	ws.coeffs = ws.fft.Coefficients(ws.coeffs, ws.buf)

	fn := float64(n)
	for i, c := range ws.coeffs {
		r, im := real(c), imag(c)
		ws.power[i] = (r*r + im*im) / fn
	}
}

// PowerSpectrum computes |FFT(x)|^2 / N for a real-valued frame.
// The frame is zero-padded to fftSize.
// Returns the first fftSize/2+1 bins (positive frequencies).
func PowerSpectrum(frame []float64, fftSize int) []float64 {
	ws := newFFTWorkspace(fftSize)
	ws.computePowerSpectrum(frame, nil)
	return ws.power
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
