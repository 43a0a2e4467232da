package gesture

import (
	"math"
	"strings"

	"github.com/ayusman/signspeak/internal/detector"
)

// FingerState is the binary extension state of one digit.
type FingerState int

const (
	Down FingerState = iota
	Up
)

func (s FingerState) String() string {
	if s == Up {
		return "Up"
	}
	return "Down"
}

// Finger identifies one digit of a hand.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	numFingers
)

var fingerNames = [numFingers]string{"Thumb", "Index", "Middle", "Ring", "Pinky"}

func (f Finger) String() string {
	if f < 0 || f >= numFingers {
		return "Finger(?)"
	}
	return fingerNames[f]
}

// FingerStateSet maps each finger to its state.
type FingerStateSet [numFingers]FingerState

// String renders the set as "Thumb: Up | Index: Down | ...".
func (s FingerStateSet) String() string {
	parts := make([]string, numFingers)
	for f := Thumb; f < numFingers; f++ {
		parts[f] = f.String() + ": " + s[f].String()
	}
	return strings.Join(parts, " | ")
}

// Is reports whether every listed finger has the given state.
func (s FingerStateSet) Is(state FingerState, fingers ...Finger) bool {
	for _, f := range fingers {
		if s[f] != state {
			return false
		}
	}
	return true
}

// Distance is the planar Euclidean distance between two landmarks. Depth is ignored.
func Distance(a, b detector.Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// HandSize is the wrist to middle fingertip distance, the scale for relative thresholds.
func HandSize(hand *detector.HandLandmarks) float64 {
	return Distance(hand.Points[detector.Wrist], hand.Points[detector.MiddleTip])
}

// FingerStateOf classifies a non-thumb finger. The fingertip must clear the PIP joint by
// a tenth of the PIP-MCP vertical span to count as Up; the boundary is Down.
func FingerStateOf(tip, pip, mcp detector.Point3D) FingerState {
	margin := math.Abs(pip.Y-mcp.Y) * 0.1
	if tip.Y < pip.Y-margin {
		return Up
	}
	return Down
}

// ThumbStateOf classifies the thumb by the horizontal order of its tip and IP joint.
func ThumbStateOf(tip, ip detector.Point3D) FingerState {
	if tip.X < ip.X {
		return Up
	}
	return Down
}

// FingerStates computes the state of all five digits.
func FingerStates(hand *detector.HandLandmarks) FingerStateSet {
	p := &hand.Points
	return FingerStateSet{
		Thumb:  ThumbStateOf(p[detector.ThumbTip], p[detector.ThumbIP]),
		Index:  FingerStateOf(p[detector.IndexTip], p[detector.IndexPIP], p[detector.IndexMCP]),
		Middle: FingerStateOf(p[detector.MiddleTip], p[detector.MiddlePIP], p[detector.MiddleMCP]),
		Ring:   FingerStateOf(p[detector.RingTip], p[detector.RingPIP], p[detector.RingMCP]),
		Pinky:  FingerStateOf(p[detector.PinkyTip], p[detector.PinkyPIP], p[detector.PinkyMCP]),
	}
}
