package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	pose  *PoseLandmarks
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetPose sets the pose that will be returned by Detect.
func (m *MockDetector) SetPose(pose *PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = pose
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured observation or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Observation{}, m.err
	}
	return Observation{
		Pose:      m.pose,
		Hands:     m.hands,
		Timestamp: time.Now(),
	}, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Fingers selects which digits SyntheticHand extends.
type Fingers struct {
	Thumb, Index, Middle, Ring, Pinky bool
}

// SyntheticHand builds a hand whose wrist sits at (wx, wy) with the selected digits
// extended. The thumb abducts towards -x when extended; the four fingers point towards -y.
func SyntheticHand(side Handedness, wx, wy float64, f Fingers) HandLandmarks {
	h := HandLandmarks{Handedness: side, Score: 0.95}
	h.Points[Wrist] = Point3D{X: wx, Y: wy}

	h.Points[ThumbCMC] = Point3D{X: wx - 0.03, Y: wy - 0.03}
	h.Points[ThumbMCP] = Point3D{X: wx - 0.06, Y: wy - 0.06}
	h.Points[ThumbIP] = Point3D{X: wx - 0.09, Y: wy - 0.08}
	if f.Thumb {
		h.Points[ThumbTip] = Point3D{X: wx - 0.12, Y: wy - 0.09}
	} else {
		h.Points[ThumbTip] = Point3D{X: wx - 0.05, Y: wy - 0.10, Z: -0.01}
	}

	fingers := []struct {
		mcp      int
		offsetX  float64
		extended bool
	}{
		{IndexMCP, -0.02, f.Index},
		{MiddleMCP, 0.01, f.Middle},
		{RingMCP, 0.04, f.Ring},
		{PinkyMCP, 0.07, f.Pinky},
	}
	for _, fg := range fingers {
		x := wx + fg.offsetX
		h.Points[fg.mcp] = Point3D{X: x, Y: wy - 0.10}
		if fg.extended {
			h.Points[fg.mcp+1] = Point3D{X: x, Y: wy - 0.16}
			h.Points[fg.mcp+2] = Point3D{X: x, Y: wy - 0.20}
			h.Points[fg.mcp+3] = Point3D{X: x, Y: wy - 0.24}
		} else {
			h.Points[fg.mcp+1] = Point3D{X: x, Y: wy - 0.13, Z: -0.03}
			h.Points[fg.mcp+2] = Point3D{X: x, Y: wy - 0.11, Z: -0.04}
			h.Points[fg.mcp+3] = Point3D{X: x, Y: wy - 0.09, Z: -0.02}
		}
	}

	return h
}

// OpenPalmLandmarks returns a right hand with every digit extended.
func OpenPalmLandmarks() HandLandmarks {
	return SyntheticHand(Right, 0.5, 0.8, Fingers{true, true, true, true, true})
}

// FistLandmarks returns a right hand with every digit folded.
func FistLandmarks() HandLandmarks {
	return SyntheticHand(Right, 0.5, 0.8, Fingers{})
}

// ILoveYouLandmarks returns a right hand with thumb, index and pinky extended.
func ILoveYouLandmarks() HandLandmarks {
	return SyntheticHand(Right, 0.5, 0.8, Fingers{Thumb: true, Index: true, Pinky: true})
}

// PeaceLandmarks returns a hand of the given side with index and middle extended.
func PeaceLandmarks(side Handedness, wx, wy float64) HandLandmarks {
	return SyntheticHand(side, wx, wy, Fingers{Index: true, Middle: true})
}

// OKLandmarks returns a right hand whose thumb and index tips touch while
// middle, ring and pinky are extended.
func OKLandmarks() HandLandmarks {
	h := SyntheticHand(Right, 0.5, 0.8, Fingers{Middle: true, Ring: true, Pinky: true})
	h.Points[IndexTip] = Point3D{X: 0.45, Y: 0.68}
	h.Points[ThumbTip] = Point3D{X: 0.455, Y: 0.68}
	return h
}

// PoseFixture returns a pose whose landmarks are spread over the frame.
func PoseFixture() *PoseLandmarks {
	p := &PoseLandmarks{}
	for i := range p.Points {
		p.Points[i] = Point3D{
			X: 0.3 + float64(i%11)*0.04,
			Y: 0.1 + float64(i/11)*0.3,
			Z: -0.1 + float64(i)*0.01,
		}
	}
	return p
}

// ThumbsUpLandmarks returns a preset HandLandmarks representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: Right,
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}
