package feature

import "math"

// energyFloor keeps log() finite on silent frames.
const energyFloor = 1e-30

// sparseFilter stores only the non-zero range of a triangular filter.
type sparseFilter struct {
	start  int       // first non-zero bin index
	coeffs []float64 // non-zero coefficient values
}

// MelFilterbank represents the triangular Mel-spaced filterbank.
type MelFilterbank struct {
	Filters [][]float64    // [numFilters][fftSize/2+1]
	sparse  []sparseFilter // non-zero span of each filter
}

// NewMelFilterbank constructs numFilters triangular filters spaced evenly on
// the Mel scale between lowFreq and highFreq. highFreq <= 0 or above Nyquist
// means sampleRate/2.
func NewMelFilterbank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) *MelFilterbank {
	nyquist := float64(sampleRate) / 2
	if highFreq <= 0 || highFreq > nyquist {
		highFreq = nyquist
	}
	lowFreq = max(lowFreq, 0)

	nBins := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	step := (hzToMel(highFreq) - lowMel) / float64(numFilters+1)

	// numFilters+2 equally spaced Mel points mapped to FFT bins
	bins := make([]int, numFilters+2)
	for i := range bins {
		freq := melToHz(lowMel + float64(i)*step)
		bins[i] = int(math.Floor(freq * float64(fftSize+1) / float64(sampleRate)))
	}

	fb := &MelFilterbank{
		Filters: make([][]float64, numFilters),
		sparse:  make([]sparseFilter, numFilters),
	}
	for i := 0; i < numFilters; i++ {
		f := make([]float64, nBins)
		left, center, right := bins[i], bins[i+1], bins[i+2]
		for j := left; j < center && j < nBins; j++ {
			f[j] = float64(j-left) / float64(center-left)
		}
		for j := center; j <= right && j < nBins; j++ {
			if right != center {
				f[j] = float64(right-j) / float64(right-center)
			}
		}
		fb.Filters[i] = f
		fb.sparse[i] = toSparse(f)
	}
	return fb
}

func toSparse(f []float64) sparseFilter {
	start, end := -1, 0
	for j, v := range f {
		if v != 0 {
			if start < 0 {
				start = j
			}
			end = j + 1
		}
	}
	if start < 0 {
		return sparseFilter{}
	}
	coeffs := make([]float64, end-start)
	copy(coeffs, f[start:end])
	return sparseFilter{start: start, coeffs: coeffs}
}

// Apply multiplies the power spectrum through each filter and returns log Mel energies.
func (fb *MelFilterbank) Apply(powerSpec []float64) []float64 {
	energies := make([]float64, len(fb.sparse))
	fb.applyInto(powerSpec, energies)
	return energies
}

func (fb *MelFilterbank) applyInto(powerSpec, dst []float64) {
	for i, sf := range fb.sparse {
		end := min(sf.start+len(sf.coeffs), len(powerSpec))
		sum := 0.0
		if sf.start < end {
			for j, p := range powerSpec[sf.start:end] {
				sum += p * sf.coeffs[j]
			}
		}
		dst[i] = math.Log(max(sum, energyFloor))
	}
}

// dctTable holds the orthonormal DCT-II basis truncated to numCepstra rows.
type dctTable struct {
	cos [][]float64 // [numCepstra][numFilters]
}

func newDCTTable(numCepstra, numFilters int) *dctTable {
	t := &dctTable{cos: make([][]float64, numCepstra)}
	n := float64(numFilters)
	for k := 0; k < numCepstra; k++ {
		scale := math.Sqrt(2 / n)
		if k == 0 {
			scale = math.Sqrt(1 / n)
		}
		t.cos[k] = make([]float64, numFilters)
		for j := 0; j < numFilters; j++ {
			t.cos[k][j] = scale * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/n)
		}
	}
	return t
}

func (t *dctTable) applyInto(logMelEnergies, dst []float64) {
	for k, row := range t.cos {
		sum := 0.0
		for j, c := range row {
			sum += logMelEnergies[j] * c
		}
		dst[k] = sum
	}
}

// lifterTable holds precomputed sinusoidal liftering coefficients.
type lifterTable struct {
	coeff []float64
}

func newLifterTable(numCepstra, L int) *lifterTable {
	t := &lifterTable{coeff: make([]float64, numCepstra)}
	for i := range t.coeff {
		t.coeff[i] = 1.0 + float64(L)/2.0*math.Sin(math.Pi*float64(i)/float64(L))
	}
	return t
}

func (t *lifterTable) apply(cepstra []float64) {
	for i := range cepstra {
		cepstra[i] *= t.coeff[i]
	}
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}
