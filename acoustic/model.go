// Package acoustic runs acoustic models: stacked feature frames in,
// per-frame class log-probabilities out.
package acoustic

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

var (
	// ErrShape is returned when input or output dimensions do not agree
	// with the model.
	ErrShape = errors.New("acoustic: shape mismatch")
	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("acoustic: model closed")
)

// Model is an acoustic model. Run takes nFrames rows of width values,
// row-major, and returns one score row per time step.
// A Model is not required to be safe for concurrent use.
type Model interface {
	Run(input []float32, nFrames, width int) (*Output, error)
	Close() error
}

// Output holds per-step class scores laid out [time][1][class]: the batch
// dimension is always one, so row t starts at t*Classes.
type Output struct {
	Data    []float32
	Steps   int
	Classes int
}

// NewOutput allocates a zeroed steps x classes output.
func NewOutput(steps, classes int) *Output {
	return &Output{Data: make([]float32, steps*classes), Steps: steps, Classes: classes}
}

// Row returns the class scores of step t.
func (o *Output) Row(t int) []float32 {
	return o.Data[t*o.Classes : (t+1)*o.Classes]
}

// Validate checks that Data holds exactly Steps x Classes values.
func (o *Output) Validate() error {
	if o.Steps < 0 || o.Classes < 0 || len(o.Data) != o.Steps*o.Classes {
		return fmt.Errorf("%w: %d values for %d steps x %d classes", ErrShape, len(o.Data), o.Steps, o.Classes)
	}
	return nil
}

// LogSoftmax normalizes every row in place into log-probabilities.
// Rows that already are log-probabilities are unchanged up to rounding.
func (o *Output) LogSoftmax() {
	for t := 0; t < o.Steps; t++ {
		logSoftmax32(o.Row(t))
	}
}

func logSoftmax32(row []float32) {
	if len(row) == 0 {
		return
	}
	maxVal := math.Inf(-1)
	for _, v := range row {
		maxVal = math.Max(maxVal, float64(v))
	}
	if math.IsInf(maxVal, 0) {
		return
	}
	sumExp := 0.0
	for _, v := range row {
		sumExp += math.Exp(float64(v) - maxVal)
	}
	logSumExp := maxVal + math.Log(sumExp)
	for i, v := range row {
		row[i] = float32(float64(v) - logSumExp)
	}
}

func checkInput(input []float32, nFrames, width int) error {
	if nFrames < 0 || width <= 0 {
		return fmt.Errorf("%w: %d frames of width %d", ErrShape, nFrames, width)
	}
	if len(input) < nFrames*width {
		return fmt.Errorf("%w: %d values for %d frames of width %d", ErrShape, len(input), nFrames, width)
	}
	return nil
}

// Open loads an acoustic model file. Files ending in .onnx run under ONNX
// Runtime with the names in cfg; anything else is read as a serialized DNN.
func Open(path string, cfg ONNXConfig) (Model, error) {
	if strings.EqualFold(filepath.Ext(path), ".onnx") {
		return OpenONNX(path, cfg)
	}
	return LoadDNNFile(path)
}
