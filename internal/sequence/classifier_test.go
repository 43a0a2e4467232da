package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/signspeak/internal/feature"
)

type fakeModel struct {
	probs  []float64
	err    error
	rows   int
	cols   int
	first  float64
	closed bool
}

func (m *fakeModel) Predict(ctx context.Context, input *mat.Dense) ([]float64, error) {
	m.rows, m.cols = input.Dims()
	m.first = input.At(0, 0)
	return m.probs, m.err
}

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

func fullWindow(n int) []feature.Vector {
	w := make([]feature.Vector, n)
	for i := range w {
		w[i] = frame(float64(i + 1))
	}
	return w
}

func TestClassifier_Classify(t *testing.T) {
	t.Run("returns the distribution over display labels", func(t *testing.T) {
		m := &fakeModel{probs: []float64{0.92, 0.01, 0.02, 0.01, 0.01, 0.01, 0.01, 0.005, 0.005}}
		c, err := NewClassifier(m, DefaultConfig())
		require.NoError(t, err)

		dist, err := c.Classify(context.Background(), fullWindow(DefaultWindowSize))
		require.NoError(t, err)

		assert.Equal(t, DefaultWindowSize, m.rows)
		assert.Equal(t, feature.Dim, m.cols)
		assert.Equal(t, 1.0, m.first)
		assert.Equal(t, "I Love You", dist.Labels[1])

		label, p := dist.Top()
		assert.Equal(t, "Hello", label)
		assert.Equal(t, 0.92, p)
	})

	t.Run("rejects a short window", func(t *testing.T) {
		m := &fakeModel{probs: make([]float64, 9)}
		c, err := NewClassifier(m, DefaultConfig())
		require.NoError(t, err)

		_, err = c.Classify(context.Background(), fullWindow(39))
		assert.ErrorIs(t, err, ErrWindowSize)
		assert.Zero(t, m.rows, "model must not run")
	})

	t.Run("rejects a long window", func(t *testing.T) {
		c, err := NewClassifier(&fakeModel{}, DefaultConfig())
		require.NoError(t, err)

		_, err = c.Classify(context.Background(), fullWindow(41))
		assert.ErrorIs(t, err, ErrWindowSize)
	})

	t.Run("output length must match the label set", func(t *testing.T) {
		c, err := NewClassifier(&fakeModel{probs: []float64{0.5, 0.5}}, DefaultConfig())
		require.NoError(t, err)

		_, err = c.Classify(context.Background(), fullWindow(DefaultWindowSize))
		assert.ErrorIs(t, err, ErrModelOutput)
	})

	t.Run("model errors are wrapped", func(t *testing.T) {
		boom := errors.New("boom")
		c, err := NewClassifier(&fakeModel{err: boom}, DefaultConfig())
		require.NoError(t, err)

		_, err = c.Classify(context.Background(), fullWindow(DefaultWindowSize))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("custom window size", func(t *testing.T) {
		m := &fakeModel{probs: make([]float64, 9)}
		cfg := DefaultConfig()
		cfg.WindowSize = 5
		c, err := NewClassifier(m, cfg)
		require.NoError(t, err)
		assert.Equal(t, 5, c.WindowSize())

		_, err = c.Classify(context.Background(), fullWindow(5))
		require.NoError(t, err)
		assert.Equal(t, 5, m.rows)
	})

	t.Run("close releases the model", func(t *testing.T) {
		m := &fakeModel{}
		c, err := NewClassifier(m, DefaultConfig())
		require.NoError(t, err)
		require.NoError(t, c.Close())
		assert.True(t, m.closed)
	})
}

func TestNewClassifier_Invalid(t *testing.T) {
	_, err := NewClassifier(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Labels.Display = []string{"only one"}
	_, err = NewClassifier(&fakeModel{}, cfg)
	assert.Error(t, err)
}

func TestDistribution_Top(t *testing.T) {
	d := Distribution{Labels: []string{"a", "b", "c"}, Probs: []float64{0.2, 0.4, 0.4}}
	label, p := d.Top()
	assert.Equal(t, "b", label)
	assert.Equal(t, 0.4, p)

	label, p = Distribution{}.Top()
	assert.Empty(t, label)
	assert.Zero(t, p)
}

func TestLabelSet(t *testing.T) {
	l := DefaultLabels()
	require.NoError(t, l.Validate())
	assert.Equal(t, 9, l.Len())
	assert.Equal(t, "Thank You", l.DisplayName(3))
	assert.Equal(t, "Nothing", l.NothingDisplay())

	l.Classes = append(l.Classes[:8:8], "Hello")
	l.Display = nil
	assert.Error(t, l.Validate())
}
