package sequence

import (
	"sync"

	"github.com/ayusman/signspeak/internal/feature"
)

// DefaultWindowSize is the number of frames the shipped model consumes.
const DefaultWindowSize = 40

// Window keeps the most recent frames in arrival order. Once full, each push evicts the
// oldest frame. It is safe for concurrent use.
type Window struct {
	mu    sync.Mutex
	buf   []feature.Vector
	start int
	count int
}

// NewWindow creates a Window holding up to size frames. A non-positive size uses
// DefaultWindowSize.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]feature.Vector, size)}
}

// Push appends a frame, evicting the oldest one when full.
func (w *Window) Push(v feature.Vector) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = v
		w.count++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// IsFull reports whether the window holds Cap frames.
func (w *Window) IsFull() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count == len(w.buf)
}

// Len returns the number of buffered frames.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the window size.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Snapshot copies the buffered frames, oldest first.
func (w *Window) Snapshot() []feature.Vector {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]feature.Vector, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Reset empties the window.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.start = 0
	w.count = 0
}
