package audio

import "math"

// Resample converts samples from one sample rate to another using linear
// interpolation between neighbouring samples. It returns the input unchanged
// when the rates already match and nil for non-positive rates.
func Resample(samples []int16, from, to int) []int16 {
	if from <= 0 || to <= 0 {
		return nil
	}
	if from == to || len(samples) == 0 {
		return samples
	}

	ratio := float64(from) / float64(to)
	newLen := int(float64(len(samples)) / ratio)
	if newLen == 0 {
		return nil
	}

	out := make([]int16, newLen)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		v := float64(samples[idx])*(1-frac) + float64(samples[idx+1])*frac
		out[i] = int16(math.Round(v))
	}
	return out
}
