// Package feature flattens an observation into the fixed-length vector the sequence
// model was trained on.
package feature

import "github.com/ayusman/signspeak/internal/detector"

// Vector layout.
const (
	PoseDim     = detector.NumPoseLandmarks * 3
	HandSlotDim = detector.NumLandmarks * 3
	MaxHands    = 2
	Dim         = PoseDim + MaxHands*HandSlotDim
)

// Vector is one frame's features: the pose block followed by two hand slots.
type Vector [Dim]float64

// Config holds the per-coordinate weighting.
type Config struct {
	// ZScale damps the depth coordinate of every landmark.
	ZScale float64

	// HandBaseWeight multiplies every hand coordinate.
	HandBaseWeight float64

	// KeypointWeights boosts selected hand landmarks. Missing indices weigh 1.0.
	KeypointWeights map[int]float64
}

// DefaultConfig returns the layout the shipped model expects.
func DefaultConfig() Config {
	return Config{
		ZScale:         0.3,
		HandBaseWeight: 1.3,
		KeypointWeights: map[int]float64{
			detector.ThumbTip:  1.5,
			detector.IndexTip:  1.3,
			detector.MiddleTip: 1.2,
			detector.PinkyTip:  1.5,
		},
	}
}

// Builder converts observations into vectors. It is safe for concurrent use.
type Builder struct {
	zScale  float64
	weights [detector.NumLandmarks]float64
}

// NewBuilder creates a Builder with the per-landmark weights resolved once.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{zScale: cfg.ZScale}
	for i := range b.weights {
		w, ok := cfg.KeypointWeights[i]
		if !ok {
			w = 1.0
		}
		b.weights[i] = cfg.HandBaseWeight * w
	}
	return b
}

// Build flattens obs. A missing pose or hand leaves its block zero; hands fill slots in
// detection order and any beyond MaxHands are dropped.
func (b *Builder) Build(obs detector.Observation) Vector {
	var v Vector

	if obs.Pose != nil {
		for i, p := range obs.Pose.Points {
			v[i*3] = p.X
			v[i*3+1] = p.Y
			v[i*3+2] = p.Z * b.zScale
		}
	}

	for slot, hand := range obs.Hands {
		if slot >= MaxHands {
			break
		}
		base := PoseDim + slot*HandSlotDim
		for i, p := range hand.Points {
			w := b.weights[i]
			v[base+i*3] = p.X * w
			v[base+i*3+1] = p.Y * w
			v[base+i*3+2] = p.Z * b.zScale * w
		}
	}

	return v
}

// Slice returns the vector as a float64 slice sharing no memory with v.
func (v *Vector) Slice() []float64 {
	out := make([]float64, Dim)
	copy(out, v[:])
	return out
}
