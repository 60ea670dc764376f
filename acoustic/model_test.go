package acoustic

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestOutputRow(t *testing.T) {
	out := &Output{Data: []float32{1, 2, 3, 4, 5, 6}, Steps: 2, Classes: 3}
	row := out.Row(1)
	if len(row) != 3 || row[0] != 4 || row[2] != 6 {
		t.Errorf("Row(1) = %v, want [4 5 6]", row)
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	out.Steps = 3
	if err := out.Validate(); !errors.Is(err, ErrShape) {
		t.Errorf("Validate err = %v, want ErrShape", err)
	}
}

func TestOutputLogSoftmax(t *testing.T) {
	out := &Output{Data: []float32{0, 0, float32(math.Log(2)), 1, 2, 3}, Steps: 2, Classes: 3}
	out.LogSoftmax()
	for step := 0; step < out.Steps; step++ {
		sum := 0.0
		for _, v := range out.Row(step) {
			sum += math.Exp(float64(v))
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("step %d sums to %f, want 1", step, sum)
		}
	}
	// row 0: [1,1,2]/4
	if math.Abs(float64(out.Data[2])-math.Log(0.5)) > 1e-6 {
		t.Errorf("Data[2] = %f, want log(0.5)", out.Data[2])
	}

	// idempotent
	before := append([]float32(nil), out.Data...)
	out.LogSoftmax()
	for i := range before {
		if math.Abs(float64(before[i]-out.Data[i])) > 1e-6 {
			t.Errorf("second LogSoftmax changed Data[%d]: %f -> %f", i, before[i], out.Data[i])
		}
	}
}

func TestOutputFromTensor(t *testing.T) {
	out, err := outputFromTensor([]int64{2, 1, 3}, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("outputFromTensor: %v", err)
	}
	if out.Steps != 2 || out.Classes != 3 || out.Row(1)[0] != 4 {
		t.Errorf("got %+v", out)
	}

	bad := []struct {
		shape []int64
		n     int
	}{
		{[]int64{2, 3}, 6},
		{[]int64{2, 2, 3}, 12},
		{[]int64{2, 1, 3}, 5},
	}
	for _, b := range bad {
		if _, err := outputFromTensor(b.shape, make([]float32, b.n)); !errors.Is(err, ErrShape) {
			t.Errorf("shape %v: err = %v, want ErrShape", b.shape, err)
		}
	}
}

func TestOpenONNX_Errors(t *testing.T) {
	if _, err := OpenONNX("model.onnx", ONNXConfig{}); err == nil {
		t.Error("expected error for missing node names")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.onnx"), DefaultONNXConfig()); err == nil {
		t.Error("expected error for missing onnx file")
	}
}

func TestDefaultONNXConfig(t *testing.T) {
	cfg := DefaultONNXConfig()
	if cfg.InputName != "input_node" || cfg.LengthName != "input_lengths" || cfg.OutputName != "Reshape_3" {
		t.Errorf("DefaultONNXConfig() = %+v", cfg)
	}
}
