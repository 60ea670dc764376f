package acoustic

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig names the graph nodes of an exported CTC acoustic model.
type ONNXConfig struct {
	InputName  string // float32 [1, n_frames, width]
	LengthName string // int32 [1]; empty if the graph takes no length input
	OutputName string // float32 [n_frames, 1, classes]
	// LibraryPath is the onnxruntime shared library. Empty means
	// $ONNXRUNTIME_SHARED_LIBRARY_PATH, then the loader's default search.
	LibraryPath string
}

// DefaultONNXConfig returns the node names of the reference English graph.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		InputName:  "input_node",
		LengthName: "input_lengths",
		OutputName: "Reshape_3",
	}
}

var (
	ortInitMu sync.Mutex
	ortInit   bool
)

// initONNXRuntime loads the shared library once per process.
func initONNXRuntime(libPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()
	if ortInit {
		return nil
	}
	if libPath == "" {
		libPath = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	ortInit = true
	return nil
}

// ONNXModel runs an ONNX graph under ONNX Runtime.
type ONNXModel struct {
	cfg ONNXConfig

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

var _ Model = (*ONNXModel)(nil)

// OpenONNX creates an inference session for the model at path.
func OpenONNX(path string, cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.InputName == "" || cfg.OutputName == "" {
		return nil, errors.New("acoustic: onnx input and output names are required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if err := initONNXRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs := []string{cfg.InputName}
	if cfg.LengthName != "" {
		inputs = append(inputs, cfg.LengthName)
	}
	session, err := ort.NewDynamicAdvancedSession(path, inputs, []string{cfg.OutputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &ONNXModel{cfg: cfg, session: session}, nil
}

// Run implements Model. The graph output is normalized to log-probabilities.
func (m *ONNXModel) Run(input []float32, nFrames, width int) (*Output, error) {
	if err := checkInput(input, nFrames, width); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrClosed
	}
	if nFrames == 0 {
		return &Output{}, nil
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(nFrames), int64(width)), input[:nFrames*width])
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	values := []ort.Value{inputTensor}
	if m.cfg.LengthName != "" {
		lengthTensor, err := ort.NewTensor(ort.NewShape(1), []int32{int32(nFrames)})
		if err != nil {
			return nil, fmt.Errorf("create length tensor: %w", err)
		}
		defer lengthTensor.Destroy()
		values = append(values, lengthTensor)
	}

	outputs := []ort.Value{nil}
	if err := m.session.Run(values, outputs); err != nil {
		return nil, fmt.Errorf("run onnx session: %w", err)
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("%w: output %q is not a float32 tensor", ErrShape, m.cfg.OutputName)
	}
	out, err := outputFromTensor(tensor.GetShape(), tensor.GetData())
	if err != nil {
		return nil, err
	}
	out.LogSoftmax()
	return out, nil
}

// outputFromTensor copies a [time, 1, classes] tensor into an Output.
func outputFromTensor(shape []int64, data []float32) (*Output, error) {
	if len(shape) != 3 || shape[1] != 1 {
		return nil, fmt.Errorf("%w: output shape %v, want [time 1 classes]", ErrShape, shape)
	}
	out := NewOutput(int(shape[0]), int(shape[2]))
	if len(data) != len(out.Data) {
		return nil, fmt.Errorf("%w: output has %d values for shape %v", ErrShape, len(data), shape)
	}
	copy(out.Data, data)
	return out, nil
}

// Close destroys the session. It is safe to call more than once.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
