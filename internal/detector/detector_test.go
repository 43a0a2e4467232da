package detector

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestHandLandmarks_Normalize(t *testing.T) {
	t.Run("wrist at origin after normalization", func(t *testing.T) {
		hand := HandLandmarks{
			Handedness: Right,
			Score:      0.9,
		}

		hand.Points[Wrist] = Point3D{X: 100.0, Y: 200.0, Z: 50.0}
		hand.Points[MiddleMCP] = Point3D{X: 130.0, Y: 240.0, Z: 50.0}
		for i := 1; i < NumLandmarks; i++ {
			if i != MiddleMCP {
				hand.Points[i] = Point3D{
					X: 100.0 + float64(i)*10.0,
					Y: 200.0 + float64(i)*5.0,
					Z: 50.0 + float64(i)*2.0,
				}
			}
		}

		normalized := hand.Normalize()

		assert.InDelta(t, 0, normalized.Points[Wrist].X, epsilon)
		assert.InDelta(t, 0, normalized.Points[Wrist].Y, epsilon)
		assert.InDelta(t, 0, normalized.Points[Wrist].Z, epsilon)
		assert.Equal(t, hand.Handedness, normalized.Handedness)
		assert.Equal(t, hand.Score, normalized.Score)
	})

	t.Run("distance from wrist to middle MCP is 1.0", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 13.0, Y: 24.0, Z: 5.0} // distance = 5.0

		normalized := hand.Normalize()

		m := normalized.Points[MiddleMCP]
		assert.InDelta(t, 1.0, math.Sqrt(m.X*m.X+m.Y*m.Y+m.Z*m.Z), epsilon)
	})

	t.Run("nil hand returns nil", func(t *testing.T) {
		var hand *HandLandmarks
		assert.Nil(t, hand.Normalize())
	})

	t.Run("zero scale returns translated only", func(t *testing.T) {
		hand := HandLandmarks{}
		hand.Points[Wrist] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}
		hand.Points[MiddleMCP] = Point3D{X: 10.0, Y: 20.0, Z: 5.0}

		normalized := hand.Normalize()

		assert.InDelta(t, 0, normalized.Points[Wrist].X, epsilon)
	})
}

func TestNewHandLandmarks(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{"exact arity", NumLandmarks, false},
		{"too few", 20, true},
		{"too many", 22, true},
		{"empty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]Point3D, tt.count)
			for i := range points {
				points[i] = Point3D{X: float64(i) / 100}
			}

			hand, err := NewHandLandmarks(points, Left, 0.8)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedLandmarks))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Left, hand.Handedness)
			assert.Equal(t, 0.2, hand.Points[20].X)
		})
	}
}

func TestNewPoseLandmarks(t *testing.T) {
	_, err := NewPoseLandmarks(make([]Point3D, 32))
	require.ErrorIs(t, err, ErrMalformedLandmarks)

	pose, err := NewPoseLandmarks(make([]Point3D, NumPoseLandmarks))
	require.NoError(t, err)
	require.NotNil(t, pose)
}

func TestParseHandedness(t *testing.T) {
	assert.Equal(t, Left, ParseHandedness("Left"))
	assert.Equal(t, Right, ParseHandedness("right"))
	assert.Equal(t, Unknown, ParseHandedness(""))
	assert.Equal(t, Unknown, ParseHandedness("Both"))
}

func TestDecodeObservation(t *testing.T) {
	t.Run("round trip through the wire form", func(t *testing.T) {
		obs := Observation{
			Pose:  PoseFixture(),
			Hands: []HandLandmarks{OpenPalmLandmarks(), PeaceLandmarks(Left, 0.3, 0.8)},
		}
		w := ToWire(obs)
		require.Len(t, w.Pose, NumPoseLandmarks)
		require.Len(t, w.Hands, 2)

		got, err := w.Observation()
		require.NoError(t, err)
		require.NotNil(t, got.Pose)
		assert.Equal(t, obs.Pose.Points, got.Pose.Points)
		require.Len(t, got.Hands, 2)
		assert.Equal(t, Right, got.Hands[0].Handedness)
		assert.Equal(t, Left, got.Hands[1].Handedness)
		assert.Equal(t, obs.Hands[1].Points, got.Hands[1].Points)
	})

	t.Run("no pose and no hands is valid", func(t *testing.T) {
		obs, err := DecodeObservation([]byte(`{"hands":[],"timestamp":1700000000000}`))
		require.NoError(t, err)
		assert.Nil(t, obs.Pose)
		assert.Empty(t, obs.Hands)
		assert.Equal(t, int64(1700000000000), obs.Timestamp.UnixMilli())
	})

	t.Run("short hand is rejected", func(t *testing.T) {
		_, err := DecodeObservation([]byte(`{"hands":[{"handedness":"Left","score":0.9,"points":[{"x":0.1,"y":0.2,"z":0}]}]}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedLandmarks)
		assert.Contains(t, err.Error(), "hand 0")
	})

	t.Run("hand without points is absent", func(t *testing.T) {
		w := ToWire(Observation{Pose: PoseFixture(), Hands: []HandLandmarks{PeaceLandmarks(Right, 0.6, 0.8)}})
		w.Hands = append([]WireHand{{Handedness: "Left", Score: 0.4}}, w.Hands...)
		data, err := json.Marshal(w)
		require.NoError(t, err)

		obs, err := DecodeObservation(data)
		require.NoError(t, err)
		require.NotNil(t, obs.Pose)
		require.Len(t, obs.Hands, 1)
		assert.Equal(t, Right, obs.Hands[0].Handedness)

		obs, err = DecodeObservation([]byte(`{"pose":[],"hands":[{"handedness":"Left","points":[]}]}`))
		require.NoError(t, err)
		assert.Nil(t, obs.Pose)
		assert.Empty(t, obs.Hands)
	})

	t.Run("short pose is rejected", func(t *testing.T) {
		_, err := DecodeObservation([]byte(`{"pose":[{"x":0.1,"y":0.2,"z":0}],"hands":[]}`))
		assert.ErrorIs(t, err, ErrMalformedLandmarks)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeObservation([]byte(`{"hands":`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMalformedLandmarks)
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty observation by default", func(t *testing.T) {
		mock := NewMockDetector()

		obs, err := mock.Detect(nil)

		require.NoError(t, err)
		assert.Nil(t, obs.Pose)
		assert.Empty(t, obs.Hands)
		assert.False(t, obs.Timestamp.IsZero())
	})

	t.Run("returns configured hands and pose", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{ThumbsUpLandmarks(), OpenPalmLandmarks()})
		mock.SetPose(PoseFixture())

		obs, err := mock.Detect(nil)

		require.NoError(t, err)
		assert.Len(t, obs.Hands, 2)
		assert.NotNil(t, obs.Pose)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		obs, err := mock.Detect(nil)

		assert.Equal(t, expectedErr, err)
		assert.Nil(t, obs.Hands)
	})

	t.Run("Close returns nil", func(t *testing.T) {
		assert.NoError(t, NewMockDetector().Close())
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestThumbsUpLandmarks(t *testing.T) {
	landmarks := ThumbsUpLandmarks()

	assert.Equal(t, Right, landmarks.Handedness)
	assert.GreaterOrEqual(t, landmarks.Score, 0.9)

	t.Run("thumb is extended upward", func(t *testing.T) {
		assert.Less(t, landmarks.Points[ThumbTip].Y, landmarks.Points[ThumbMCP].Y)
		assert.Less(t, landmarks.Points[ThumbTip].Y, landmarks.Points[ThumbIP].Y)
	})

	t.Run("other fingers are curled", func(t *testing.T) {
		for _, f := range []struct{ mcp, tip int }{
			{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip},
		} {
			extension := landmarks.Points[f.mcp].Y - landmarks.Points[f.tip].Y
			assert.LessOrEqual(t, extension, 0.15, "finger with tip %d appears extended", f.tip)
		}
	})
}

func TestSyntheticHand(t *testing.T) {
	t.Run("extended fingers reach above their knuckles", func(t *testing.T) {
		h := OpenPalmLandmarks()
		for _, f := range []struct{ mcp, tip int }{
			{IndexMCP, IndexTip}, {MiddleMCP, MiddleTip}, {RingMCP, RingTip}, {PinkyMCP, PinkyTip},
		} {
			assert.GreaterOrEqual(t, h.Points[f.mcp].Y-h.Points[f.tip].Y, 0.1)
		}
		assert.Less(t, h.Points[ThumbTip].X, h.Points[ThumbIP].X)
	})

	t.Run("folded fingers end below their middle joint", func(t *testing.T) {
		h := FistLandmarks()
		assert.Greater(t, h.Points[IndexTip].Y, h.Points[IndexPIP].Y)
		assert.Greater(t, h.Points[ThumbTip].X, h.Points[ThumbIP].X)
	})

	t.Run("wrist is placed where asked", func(t *testing.T) {
		h := PeaceLandmarks(Left, 0.3, 0.7)
		assert.Equal(t, Point3D{X: 0.3, Y: 0.7}, h.Points[Wrist])
		assert.Equal(t, Left, h.Handedness)
	})
}
