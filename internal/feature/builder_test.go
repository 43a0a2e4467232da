package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signspeak/internal/detector"
)

func TestDimensions(t *testing.T) {
	assert.Equal(t, 99, PoseDim)
	assert.Equal(t, 63, HandSlotDim)
	assert.Equal(t, 225, Dim)
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(DefaultConfig())

	t.Run("empty observation is all zeros", func(t *testing.T) {
		v := b.Build(detector.Observation{})
		assert.Equal(t, Vector{}, v)
	})

	t.Run("pose block scales depth only", func(t *testing.T) {
		pose := detector.PoseFixture()
		v := b.Build(detector.Observation{Pose: pose})

		for i, p := range pose.Points {
			assert.Equal(t, p.X, v[i*3])
			assert.Equal(t, p.Y, v[i*3+1])
			assert.InDelta(t, p.Z*0.3, v[i*3+2], 1e-12)
		}
		for i := PoseDim; i < Dim; i++ {
			require.Zero(t, v[i], "index %d", i)
		}
	})

	t.Run("missing pose leaves the pose block zero", func(t *testing.T) {
		v := b.Build(detector.Observation{Hands: []detector.HandLandmarks{detector.OpenPalmLandmarks()}})
		for i := 0; i < PoseDim; i++ {
			require.Zero(t, v[i], "index %d", i)
		}
		for i := PoseDim + HandSlotDim; i < Dim; i++ {
			require.Zero(t, v[i], "index %d", i)
		}
	})

	t.Run("hand coordinates are weighted", func(t *testing.T) {
		hand := detector.OpenPalmLandmarks()
		v := b.Build(detector.Observation{Hands: []detector.HandLandmarks{hand}})

		wrist := hand.Points[detector.Wrist]
		assert.InDelta(t, wrist.X*1.3, v[PoseDim], 1e-12)
		assert.InDelta(t, wrist.Y*1.3, v[PoseDim+1], 1e-12)

		tip := hand.Points[detector.ThumbTip]
		base := PoseDim + detector.ThumbTip*3
		assert.InDelta(t, tip.X*1.3*1.5, v[base], 1e-12)
		assert.InDelta(t, tip.Y*1.3*1.5, v[base+1], 1e-12)
		assert.InDelta(t, tip.Z*0.3*1.3*1.5, v[base+2], 1e-12)

		pinky := hand.Points[detector.PinkyTip]
		assert.InDelta(t, pinky.X*1.3*1.5, v[PoseDim+detector.PinkyTip*3], 1e-12)
		middle := hand.Points[detector.MiddleTip]
		assert.InDelta(t, middle.Y*1.3*1.2, v[PoseDim+detector.MiddleTip*3+1], 1e-12)
	})

	t.Run("slots follow detection order, not handedness", func(t *testing.T) {
		right := detector.PeaceLandmarks(detector.Right, 0.7, 0.8)
		left := detector.PeaceLandmarks(detector.Left, 0.2, 0.8)
		v := b.Build(detector.Observation{Hands: []detector.HandLandmarks{right, left}})

		assert.InDelta(t, 0.7*1.3, v[PoseDim], 1e-12)
		assert.InDelta(t, 0.2*1.3, v[PoseDim+HandSlotDim], 1e-12)
	})

	t.Run("third hand is dropped", func(t *testing.T) {
		two := []detector.HandLandmarks{detector.FistLandmarks(), detector.OpenPalmLandmarks()}
		three := append(append([]detector.HandLandmarks{}, two...), detector.ILoveYouLandmarks())

		assert.Equal(t, b.Build(detector.Observation{Hands: two}), b.Build(detector.Observation{Hands: three}))
	})

	t.Run("build is pure", func(t *testing.T) {
		obs := detector.Observation{Pose: detector.PoseFixture(), Hands: []detector.HandLandmarks{detector.OKLandmarks()}}
		assert.Equal(t, b.Build(obs), b.Build(obs))
	})
}

func TestVector_Slice(t *testing.T) {
	var v Vector
	v[0] = 1
	s := v.Slice()
	require.Len(t, s, Dim)
	s[0] = 2
	assert.Equal(t, 1.0, v[0])
}
