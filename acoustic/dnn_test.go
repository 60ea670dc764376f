package acoustic

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testInput(nFrames, width int) []float32 {
	input := make([]float32, nFrames*width)
	for i := range input {
		input[i] = float32(i%width) * 0.01
	}
	return input
}

func TestDNNRun_Dimensions(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	out, err := d.Run(testInput(10, 39), 10, 39)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Steps != 10 || out.Classes != 29 {
		t.Fatalf("shape = %dx%d, want 10x29", out.Steps, out.Classes)
	}
	if err := out.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDNNRun_LogSoftmaxSumsToOne(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	out, err := d.Run(testInput(5, 39), 5, 39)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for step := 0; step < out.Steps; step++ {
		sumExp := 0.0
		for _, lp := range out.Row(step) {
			sumExp += math.Exp(float64(lp))
		}
		if math.Abs(sumExp-1.0) > 1e-5 {
			t.Errorf("step %d: exp(log-softmax) sums to %f, want ~1.0", step, sumExp)
		}
	}
}

func TestDNNRun_Deterministic(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	r1, _ := d.Run(testInput(5, 39), 5, 39)
	r2, _ := d.Run(testInput(5, 39), 5, 39)
	for i := range r1.Data {
		if r1.Data[i] != r2.Data[i] {
			t.Fatalf("value %d: %f != %f", i, r1.Data[i], r2.Data[i])
		}
	}

	// same seed, same weights
	other := NewDNN(39, 16, 2, 29, 1)
	r3, _ := other.Run(testInput(5, 39), 5, 39)
	for i := range r1.Data {
		if r1.Data[i] != r3.Data[i] {
			t.Fatalf("seeded model differs at %d", i)
		}
	}
}

func TestDNNRun_ZeroFrames(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	out, err := d.Run(nil, 0, 39)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Steps != 0 || len(out.Data) != 0 {
		t.Errorf("got %d steps, want 0", out.Steps)
	}
}

func TestDNNRun_ShapeErrors(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	tests := []struct {
		name           string
		input          []float32
		nFrames, width int
	}{
		{"wrong width", testInput(2, 40), 2, 40},
		{"short input", testInput(1, 39), 2, 39},
		{"zero width", nil, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Run(tt.input, tt.nFrames, tt.width); !errors.Is(err, ErrShape) {
				t.Errorf("err = %v, want ErrShape", err)
			}
		})
	}
}

func TestDNNRun_AfterClose(t *testing.T) {
	d := NewDNN(39, 16, 2, 29, 1)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := d.Run(testInput(1, 39), 1, 39); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestDNNForward_1HiddenLayer(t *testing.T) {
	d := NewDNN(4, 3, 1, 2, 7)
	if len(d.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(d.Layers))
	}
	out := d.Forward([]float64{1, 2, 3, 4}, 1)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestDNNForward_KnownWeights(t *testing.T) {
	// identity hidden layer, output picks x0 and x1 as logits
	d := &DNN{
		Layers: []DNNLayer{
			{W: []float64{1, 0, 0, 1}, B: []float64{0, 0}, InDim: 2, OutDim: 2},
			{W: []float64{1, 0, 0, 1}, B: []float64{0, 0}, InDim: 2, OutDim: 2},
		},
		InputDim:  2,
		OutputDim: 2,
	}
	out := d.Forward([]float64{2, -1}, 1)
	// hidden ReLU zeroes -1: logits [2, 0]
	want0 := 2 - math.Log(math.Exp(2)+1)
	want1 := 0 - math.Log(math.Exp(2)+1)
	if math.Abs(out[0]-want0) > 1e-12 || math.Abs(out[1]-want1) > 1e-12 {
		t.Errorf("Forward = %v, want [%f %f]", out, want0, want1)
	}
}

func TestDNNForward_BatchNorm(t *testing.T) {
	d := &DNN{
		Layers: []DNNLayer{
			{W: []float64{1}, B: []float64{1}, InDim: 1, OutDim: 1},
			{W: []float64{1, -1}, B: []float64{0, 0}, InDim: 1, OutDim: 2},
		},
		InputDim:     1,
		OutputDim:    2,
		UseBatchNorm: true,
		BN: []BatchNormParams{{
			Gamma: []float64{2}, Beta: []float64{0.5},
			RunningMean: []float64{1}, RunningVar: []float64{1 - batchNormEps},
			Dim: 1,
		}},
	}
	// hidden = relu(2*(x+1-1)/1 + 0.5) = 2x+0.5; x=1 -> 2.5, logits [2.5, -2.5]
	out := d.Forward([]float64{1}, 1)
	lse := math.Log(math.Exp(2.5) + math.Exp(-2.5))
	if math.Abs(out[0]-(2.5-lse)) > 1e-9 || math.Abs(out[1]-(-2.5-lse)) > 1e-9 {
		t.Errorf("Forward = %v", out)
	}
}

func TestDNNSaveLoad_RoundTrip(t *testing.T) {
	d := NewDNN(39, 16, 3, 29, 3)

	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	d2, err := LoadDNN(&buf)
	if err != nil {
		t.Fatalf("LoadDNN: %v", err)
	}

	if d2.InputDim != d.InputDim || d2.OutputDim != d.OutputDim {
		t.Fatal("dimension mismatch after load")
	}
	if len(d2.Layers) != len(d.Layers) {
		t.Fatalf("layer count: %d != %d", len(d2.Layers), len(d.Layers))
	}

	checkSlice := func(name string, a, b []float64) {
		t.Helper()
		if len(a) != len(b) {
			t.Fatalf("%s: length %d != %d", name, len(a), len(b))
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s[%d]: %f != %f", name, i, a[i], b[i])
			}
		}
	}
	for i := range d.Layers {
		checkSlice(fmt.Sprintf("Layers[%d].W", i), d.Layers[i].W, d2.Layers[i].W)
		checkSlice(fmt.Sprintf("Layers[%d].B", i), d.Layers[i].B, d2.Layers[i].B)
	}

	r1, _ := d.Run(testInput(4, 39), 4, 39)
	r2, _ := d2.Run(testInput(4, 39), 4, 39)
	for i := range r1.Data {
		if r1.Data[i] != r2.Data[i] {
			t.Fatalf("output mismatch at %d", i)
		}
	}
}

func TestLoadDNN_Invalid(t *testing.T) {
	if _, err := LoadDNN(bytes.NewReader([]byte("not gob"))); err == nil {
		t.Error("expected error for garbage input")
	}

	broken := NewDNN(4, 3, 1, 2, 1)
	broken.Layers[1].InDim = 5
	broken.Layers[1].W = make([]float64, 10)
	var buf bytes.Buffer
	if err := broken.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := LoadDNN(&buf); !errors.Is(err, ErrShape) {
		t.Errorf("err = %v, want ErrShape", err)
	}

	// batch norm statistics narrower than the hidden layer
	narrowBN := NewDNN(4, 3, 1, 2, 1)
	narrowBN.UseBatchNorm = true
	narrowBN.BN = []BatchNormParams{{
		Gamma:       []float64{1},
		Beta:        []float64{0},
		RunningMean: []float64{0},
		RunningVar:  []float64{1},
	}}
	buf.Reset()
	if err := narrowBN.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := LoadDNN(&buf); !errors.Is(err, ErrShape) {
		t.Errorf("narrow batch norm: err = %v, want ErrShape", err)
	}
}

func TestOpen_DNNFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.dnn")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewDNN(8, 4, 1, 3, 1).Save(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m, err := Open(path, DefaultONNXConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()
	out, err := m.Run(testInput(2, 8), 2, 8)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Classes != 3 {
		t.Errorf("Classes = %d, want 3", out.Classes)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.dnn"), DefaultONNXConfig()); err == nil {
		t.Error("expected error for missing file")
	}
}
