package sequence

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ONNXModel runs an exported sequence model with the OpenCV DNN module.
// The input blob is shaped [1, frames, features] in float32.
type ONNXModel struct {
	mu     sync.Mutex
	net    gocv.Net
	closed bool
}

// NewONNXModel loads the model at path.
func NewONNXModel(path string) (*ONNXModel, error) {
	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("load onnx model %s", path)
	}
	return &ONNXModel{net: net}, nil
}

// Predict runs one forward pass. The blob and output Mats are released before returning.
func (m *ONNXModel) Predict(ctx context.Context, input *mat.Dense) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, cols := input.Dims()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("onnx model closed")
	}

	blob := gocv.NewMatWithSizes([]int{1, rows, cols}, gocv.MatTypeCV32F)
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("input blob: %w", err)
	}
	for r := 0; r < rows; r++ {
		row := input.RawRowView(r)
		for c, v := range row {
			data[r*cols+c] = float32(v)
		}
	}

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("onnx forward returned no output")
	}

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("output blob: %w", err)
	}
	probs := make([]float64, len(raw))
	for i, v := range raw {
		probs[i] = float64(v)
	}
	return probs, nil
}

// Close releases the network.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}
