package sequence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gonum.org/v1/gonum/mat"
)

// RemoteModel delegates inference to an HTTP service.
//
// Request:  POST {URL} {"frames": [[...225 floats] x N], "version": "..."}
// Response: {"probabilities": [...]}
type RemoteModel struct {
	url     string
	version string
	client  *http.Client
}

// NewRemoteModel creates a client for the classifier at url.
func NewRemoteModel(url, version string, timeout time.Duration) *RemoteModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteModel{
		url:     url,
		version: version,
		client:  &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Frames  [][]float64 `json:"frames"`
	Version string      `json:"version,omitempty"`
}

type remoteResponse struct {
	Probabilities []float64 `json:"probabilities"`
	Error         string    `json:"error,omitempty"`
}

// Predict posts the window and decodes the probabilities.
func (m *RemoteModel) Predict(ctx context.Context, input *mat.Dense) ([]float64, error) {
	rows, _ := input.Dims()
	req := remoteRequest{
		Frames:  make([][]float64, rows),
		Version: m.version,
	}
	for r := 0; r < rows; r++ {
		req.Frames[r] = mat.Row(nil, r, input)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("remote model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote model: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("remote model: %s", out.Error)
	}
	return out.Probabilities, nil
}

// Close releases idle connections.
func (m *RemoteModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
