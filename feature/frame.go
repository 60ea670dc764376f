package feature

import (
	"math"
	"sync"
)

// PreEmphasize applies a first-order high-pass filter: y[n] = x[n] - alpha*x[n-1].
func PreEmphasize(samples []float64, alpha float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	out[0] = samples[0]
	for i := 1; i < len(samples); i++ {
		out[i] = samples[i] - alpha*samples[i-1]
	}
	return out
}

// Frame splits samples into overlapping frames.
// frameLen and frameShift are in number of samples. A non-empty signal
// shorter than one frame is zero-padded to a single frame; the tail after the
// last full frame is dropped.
func Frame(samples []float64, frameLen, frameShift int) [][]float64 {
	n := len(samples)
	if n == 0 || frameLen <= 0 || frameShift <= 0 {
		return nil
	}
	if n < frameLen {
		frame := make([]float64, frameLen)
		copy(frame, samples)
		return [][]float64{frame}
	}
	numFrames := 1 + (n-frameLen)/frameShift
	frames := make([][]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * frameShift
		frame := make([]float64, frameLen)
		copy(frame, samples[start:start+frameLen])
		frames[i] = frame
	}
	return frames
}

// HammingWindow applies a Hamming window in-place.
func HammingWindow(frame []float64) {
	w := getHammingWindow(len(frame))
	for i := range frame {
		frame[i] *= w[i]
	}
}

var hammingCache sync.Map // int -> []float64

// getHammingWindow returns the shared, read-only Hamming window of length n.
func getHammingWindow(n int) []float64 {
	if w, ok := hammingCache.Load(n); ok {
		return w.([]float64)
	}
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
	}
	for i := 0; i < n && n > 1; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	actual, _ := hammingCache.LoadOrStore(n, w)
	return actual.([]float64)
}
