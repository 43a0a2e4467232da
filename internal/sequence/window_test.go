package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signspeak/internal/feature"
)

func frame(n float64) feature.Vector {
	var v feature.Vector
	v[0] = n
	return v
}

func firsts(vs []feature.Vector) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v[0]
	}
	return out
}

func TestWindow(t *testing.T) {
	t.Run("fills in order", func(t *testing.T) {
		w := NewWindow(3)
		assert.Equal(t, 3, w.Cap())
		assert.False(t, w.IsFull())

		w.Push(frame(1))
		w.Push(frame(2))
		assert.Equal(t, 2, w.Len())
		assert.False(t, w.IsFull())
		assert.Equal(t, []float64{1, 2}, firsts(w.Snapshot()))

		w.Push(frame(3))
		assert.True(t, w.IsFull())
		assert.Equal(t, []float64{1, 2, 3}, firsts(w.Snapshot()))
	})

	t.Run("evicts the oldest frames", func(t *testing.T) {
		w := NewWindow(DefaultWindowSize)
		k := 7
		for i := 0; i < DefaultWindowSize+k; i++ {
			w.Push(frame(float64(i)))
		}

		snap := w.Snapshot()
		require.Len(t, snap, DefaultWindowSize)
		for i, v := range snap {
			assert.Equal(t, float64(k+i), v[0])
		}
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		w := NewWindow(2)
		w.Push(frame(1))
		snap := w.Snapshot()
		snap[0][0] = 99
		assert.Equal(t, []float64{1}, firsts(w.Snapshot()))
	})

	t.Run("reset empties", func(t *testing.T) {
		w := NewWindow(2)
		w.Push(frame(1))
		w.Push(frame(2))
		w.Reset()
		assert.Equal(t, 0, w.Len())
		assert.Empty(t, w.Snapshot())

		w.Push(frame(5))
		assert.Equal(t, []float64{5}, firsts(w.Snapshot()))
	})

	t.Run("non-positive size uses the default", func(t *testing.T) {
		assert.Equal(t, DefaultWindowSize, NewWindow(0).Cap())
	})

	t.Run("concurrent pushes keep the length bounded", func(t *testing.T) {
		w := NewWindow(10)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					w.Push(frame(float64(i)))
					_ = w.Snapshot()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, w.Len())
	})
}
