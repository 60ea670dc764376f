package acoustic

import (
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sync"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// DNNLayer holds weights and biases for a single fully-connected layer.
// W is [OutDim × InDim] row-major, B is [OutDim].
type DNNLayer struct {
	W      []float64
	B      []float64
	InDim  int
	OutDim int
}

// BatchNormParams holds inference statistics for one batch normalization layer.
type BatchNormParams struct {
	Gamma       []float64 // scale [Dim]
	Beta        []float64 // shift [Dim]
	RunningMean []float64 // [Dim]
	RunningVar  []float64 // [Dim]
	Dim         int
}

// DNN is a feedforward acoustic model over stacked context frames.
// Architecture: input → hidden1 (ReLU) → ... → hiddenN (ReLU) → output (log-softmax).
// The output layer has one unit per alphabet label plus the CTC blank.
type DNN struct {
	Layers    []DNNLayer // hidden layers + output layer
	InputDim  int        // = Layers[0].InDim
	OutputDim int        // = Layers[N-1].OutDim

	// Batch normalization after each hidden layer's affine transform.
	UseBatchNorm bool
	BN           []BatchNormParams // len = number of hidden layers

	mu     sync.Mutex
	closed bool
}

var _ Model = (*DNN)(nil)

// NewDNN creates a DNN with Xavier-initialized weights drawn from seed.
func NewDNN(inputDim, hiddenDim, numHiddenLayers, outputDim int, seed int64) *DNN {
	rng := rand.New(rand.NewSource(seed))
	layers := make([]DNNLayer, numHiddenLayers+1)
	prevDim := inputDim
	for i := range layers {
		out := hiddenDim
		if i == numHiddenLayers {
			out = outputDim
		}
		layers[i] = DNNLayer{
			W:      make([]float64, out*prevDim),
			B:      make([]float64, out),
			InDim:  prevDim,
			OutDim: out,
		}
		xavierInit(rng, layers[i].W, prevDim, out)
		prevDim = out
	}
	return &DNN{Layers: layers, InputDim: inputDim, OutputDim: outputDim}
}

func xavierInit(rng *rand.Rand, w []float64, fanIn, fanOut int) {
	scale := math.Sqrt(2.0 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = rng.NormFloat64() * scale
	}
}

// batchNormEps is the epsilon for numerical stability in batch normalization.
const batchNormEps = 1e-5

// Run implements Model.
func (d *DNN) Run(input []float32, nFrames, width int) (*Output, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if err := checkInput(input, nFrames, width); err != nil {
		return nil, err
	}
	if width != d.InputDim {
		return nil, fmt.Errorf("%w: frame width %d, model expects %d", ErrShape, width, d.InputDim)
	}

	x := make([]float64, nFrames*width)
	for i := range x {
		x[i] = float64(input[i])
	}
	logProbs := d.Forward(x, nFrames)

	out := NewOutput(nFrames, d.OutputDim)
	for i, v := range logProbs {
		out.Data[i] = float32(v)
	}
	return out, nil
}

// Close implements Model. Run fails after Close.
func (d *DNN) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Forward computes log-softmax outputs for a batch of input vectors.
// input: flat [batchSize × InputDim] row-major.
// Returns flat [batchSize × OutputDim].
func (d *DNN) Forward(input []float64, batchSize int) []float64 {
	prevAct := input
	prevDim := d.InputDim
	last := len(d.Layers) - 1

	for i := range d.Layers {
		layer := &d.Layers[i]
		dst := make([]float64, batchSize*layer.OutDim)
		if batchSize > 0 {
			// dst = prevAct · Wᵀ
			blas64.Gemm(blas.NoTrans, blas.Trans, 1.0,
				blas64.General{Rows: batchSize, Cols: prevDim, Stride: prevDim, Data: prevAct},
				blas64.General{Rows: layer.OutDim, Cols: prevDim, Stride: prevDim, Data: layer.W},
				0.0,
				blas64.General{Rows: batchSize, Cols: layer.OutDim, Stride: layer.OutDim, Data: dst})
		}

		switch {
		case i == last:
			addBiasLogSoftmax(dst, layer.B, batchSize, layer.OutDim)
		case d.UseBatchNorm:
			addBiasBNReLU(dst, layer.B, &d.BN[i], batchSize, layer.OutDim)
		default:
			addBiasReLU(dst, layer.B, batchSize, layer.OutDim)
		}

		prevAct = dst
		prevDim = layer.OutDim
	}
	return prevAct
}

// addBiasReLU adds bias and applies ReLU in place.
func addBiasReLU(z []float64, bias []float64, rows, cols int) {
	for i := 0; i < rows; i++ {
		row := z[i*cols : (i+1)*cols]
		for j := range row {
			row[j] = max(row[j]+bias[j], 0)
		}
	}
}

// addBiasBNReLU adds bias, applies batch normalization using running stats, then ReLU.
// Fused: z = gamma * (z + bias - runningMean) / sqrt(runningVar + eps) + beta → ReLU
func addBiasBNReLU(z []float64, bias []float64, bn *BatchNormParams, rows, cols int) {
	scale := make([]float64, cols)
	shift := make([]float64, cols)
	for j := 0; j < cols; j++ {
		invStd := 1.0 / math.Sqrt(bn.RunningVar[j]+batchNormEps)
		scale[j] = bn.Gamma[j] * invStd
		shift[j] = bn.Beta[j] - bn.Gamma[j]*invStd*(bn.RunningMean[j]-bias[j])
	}
	for i := 0; i < rows; i++ {
		row := z[i*cols : (i+1)*cols]
		for j := range row {
			row[j] = max(row[j]*scale[j]+shift[j], 0)
		}
	}
}

// addBiasLogSoftmax adds bias and applies log-softmax per row.
func addBiasLogSoftmax(z []float64, bias []float64, rows, cols int) {
	for i := 0; i < rows; i++ {
		row := z[i*cols : (i+1)*cols]
		maxVal := math.Inf(-1)
		for j := range row {
			row[j] += bias[j]
			maxVal = math.Max(maxVal, row[j])
		}
		sumExp := 0.0
		for _, v := range row {
			sumExp += math.Exp(v - maxVal)
		}
		logSumExp := maxVal + math.Log(sumExp)
		for j := range row {
			row[j] -= logSumExp
		}
	}
}

// --- Serialization ---

const dnnFormatVersion = 1

type serializedDNN struct {
	Version int
	Layers  []DNNLayer
	BN      []BatchNormParams
}

// Save serializes the DNN to a writer using gob encoding.
func (d *DNN) Save(w io.Writer) error {
	sd := serializedDNN{Version: dnnFormatVersion, Layers: d.Layers}
	if d.UseBatchNorm {
		sd.BN = d.BN
	}
	return gob.NewEncoder(w).Encode(sd)
}

// LoadDNN deserializes a DNN from a reader and checks that its layers chain.
func LoadDNN(r io.Reader) (*DNN, error) {
	var sd serializedDNN
	if err := gob.NewDecoder(r).Decode(&sd); err != nil {
		return nil, fmt.Errorf("decode dnn: %w", err)
	}
	if sd.Version != dnnFormatVersion {
		return nil, fmt.Errorf("unsupported dnn format version %d", sd.Version)
	}
	if len(sd.Layers) == 0 {
		return nil, fmt.Errorf("%w: dnn has no layers", ErrShape)
	}
	for i, l := range sd.Layers {
		if len(l.W) != l.InDim*l.OutDim || len(l.B) != l.OutDim {
			return nil, fmt.Errorf("%w: layer %d weights do not match %dx%d", ErrShape, i, l.OutDim, l.InDim)
		}
		if i > 0 && l.InDim != sd.Layers[i-1].OutDim {
			return nil, fmt.Errorf("%w: layer %d input %d != layer %d output %d", ErrShape, i, l.InDim, i-1, sd.Layers[i-1].OutDim)
		}
	}
	d := &DNN{
		Layers:    sd.Layers,
		InputDim:  sd.Layers[0].InDim,
		OutputDim: sd.Layers[len(sd.Layers)-1].OutDim,
	}
	if len(sd.BN) > 0 {
		if len(sd.BN) != len(sd.Layers)-1 {
			return nil, fmt.Errorf("%w: %d batch norm layers for %d hidden layers", ErrShape, len(sd.BN), len(sd.Layers)-1)
		}
		for i, bn := range sd.BN {
			dim := sd.Layers[i].OutDim
			if len(bn.Gamma) != dim || len(bn.Beta) != dim || len(bn.RunningMean) != dim || len(bn.RunningVar) != dim {
				return nil, fmt.Errorf("%w: batch norm %d does not match layer width %d", ErrShape, i, dim)
			}
		}
		d.UseBatchNorm = true
		d.BN = sd.BN
	}
	return d, nil
}

// LoadDNNFile is a convenience wrapper that opens a file path.
func LoadDNNFile(path string) (*DNN, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDNN(f)
}
