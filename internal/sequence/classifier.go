// Package sequence buffers feature vectors over time and runs a sequence model over them.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/signspeak/internal/feature"
)

var (
	// ErrWindowSize is returned when a window does not hold exactly the model's frame count.
	ErrWindowSize = errors.New("window size mismatch")

	// ErrModelOutput is returned when the model output does not match the label set.
	ErrModelOutput = errors.New("model output does not match label set")
)

// Model scores a window. input has one row per frame, oldest first, and feature.Dim columns.
// The returned slice holds one probability per class of the label set.
type Model interface {
	Predict(ctx context.Context, input *mat.Dense) ([]float64, error)
	Close() error
}

// Distribution is a model's output over the display labels.
type Distribution struct {
	Labels []string  `json:"labels"`
	Probs  []float64 `json:"probs"`
}

// Top returns the most probable label. Ties go to the lower class index.
func (d Distribution) Top() (string, float64) {
	if len(d.Probs) == 0 {
		return "", 0
	}
	i := floats.MaxIdx(d.Probs)
	return d.Labels[i], d.Probs[i]
}

// Config holds classifier options.
type Config struct {
	WindowSize int
	Labels     LabelSet
	Logger     zerolog.Logger
}

// DefaultConfig returns the configuration of the shipped model.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Labels:     DefaultLabels(),
		Logger:     zerolog.Nop(),
	}
}

// Classifier adapts a Model to windows of feature vectors.
type Classifier struct {
	model  Model
	size   int
	labels LabelSet
	logger zerolog.Logger
}

// NewClassifier creates a Classifier over model.
func NewClassifier(model Model, cfg Config) (*Classifier, error) {
	if model == nil {
		return nil, errors.New("sequence: nil model")
	}
	if err := cfg.Labels.Validate(); err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	return &Classifier{
		model:  model,
		size:   cfg.WindowSize,
		labels: cfg.Labels,
		logger: cfg.Logger,
	}, nil
}

// WindowSize returns the number of frames Classify expects.
func (c *Classifier) WindowSize() int {
	return c.size
}

// Labels returns the label set.
func (c *Classifier) Labels() LabelSet {
	return c.labels
}

// Classify runs the model over a full window. It never pads or truncates.
func (c *Classifier) Classify(ctx context.Context, window []feature.Vector) (Distribution, error) {
	if len(window) != c.size {
		return Distribution{}, fmt.Errorf("%w: got %d frames, want %d", ErrWindowSize, len(window), c.size)
	}

	data := make([]float64, 0, c.size*feature.Dim)
	for i := range window {
		data = append(data, window[i][:]...)
	}
	input := mat.NewDense(c.size, feature.Dim, data)

	start := time.Now()
	probs, err := c.model.Predict(ctx, input)
	if err != nil {
		return Distribution{}, fmt.Errorf("predict: %w", err)
	}
	if len(probs) != c.labels.Len() {
		return Distribution{}, fmt.Errorf("%w: got %d values, want %d", ErrModelOutput, len(probs), c.labels.Len())
	}

	dist := Distribution{
		Labels: make([]string, len(probs)),
		Probs:  probs,
	}
	for i := range probs {
		dist.Labels[i] = c.labels.DisplayName(i)
	}

	label, p := dist.Top()
	c.logger.Debug().
		Str("label", label).
		Float64("confidence", p).
		Dur("took", time.Since(start)).
		Msg("sequence inference")

	return dist, nil
}

// Close releases the model.
func (c *Classifier) Close() error {
	return c.model.Close()
}
