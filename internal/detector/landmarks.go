// Package detector provides the tracking boundary: landmark types, frame observations
// and the detector implementations that produce them.
package detector

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// NumPoseLandmarks is the number of keypoints in a MediaPipe pose.
const NumPoseLandmarks = 33

// ErrMalformedLandmarks is returned when a landmark set does not have the fixed arity.
var ErrMalformedLandmarks = errors.New("malformed landmarks")

// Handedness is the tracker-assigned side of a detected hand. It is not always reliable.
type Handedness string

const (
	Left    Handedness = "Left"
	Right   Handedness = "Right"
	Unknown Handedness = ""
)

// ParseHandedness maps a tracker label to a Handedness. Anything unrecognized is Unknown.
func ParseHandedness(s string) Handedness {
	switch s {
	case "Left", "left":
		return Left
	case "Right", "right":
		return Right
	default:
		return Unknown
	}
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness Handedness            `json:"handedness"`
	Score      float64               `json:"score"`
}

// PoseLandmarks represents the 33 body landmarks detected by MediaPipe.
type PoseLandmarks struct {
	Points [NumPoseLandmarks]Point3D `json:"points"`
}

// Observation is everything the tracker reported for one frame.
// Hands are kept in detection order.
type Observation struct {
	Pose      *PoseLandmarks  `json:"pose,omitempty"`
	Hands     []HandLandmarks `json:"hands"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewHandLandmarks builds a HandLandmarks from a wire slice.
func NewHandLandmarks(points []Point3D, handedness Handedness, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: hand has %d points, want %d", ErrMalformedLandmarks, len(points), NumLandmarks)
	}
	h := HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h, nil
}

// NewPoseLandmarks builds a PoseLandmarks from a wire slice.
func NewPoseLandmarks(points []Point3D) (*PoseLandmarks, error) {
	if len(points) != NumPoseLandmarks {
		return nil, fmt.Errorf("%w: pose has %d points, want %d", ErrMalformedLandmarks, len(points), NumPoseLandmarks)
	}
	p := &PoseLandmarks{}
	copy(p.Points[:], points)
	return p, nil
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
