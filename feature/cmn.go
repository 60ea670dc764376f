package feature

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ApplyCMN subtracts the utterance-level mean from each feature dimension (Cepstral Mean Normalization).
// This removes channel and speaker-dependent spectral bias.
func ApplyCMN(features [][]float64) {
	if len(features) == 0 {
		return
	}
	mean := make([]float64, len(features[0]))
	for _, f := range features {
		floats.Add(mean, f)
	}
	floats.Scale(1/float64(len(features)), mean)
	for _, f := range features {
		floats.Sub(f, mean)
	}
}

// whiten shifts x to zero mean and scales it to unit standard deviation.
// A constant x is only centered.
func whiten(x []float64) {
	if len(x) == 0 {
		return
	}
	floats.AddConst(-floats.Sum(x)/float64(len(x)), x)
	std := floats.Norm(x, 2) / math.Sqrt(float64(len(x)))
	if std > 0 {
		floats.Scale(1/std, x)
	}
}
