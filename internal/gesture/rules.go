package gesture

import "github.com/ayusman/signspeak/internal/detector"

// Label is a recognized gesture or letter. The zero value means no gesture.
type Label string

// None is the absence of a label. It is never surfaced to consumers.
const None Label = ""

// Distance thresholds, as fractions of HandSize.
const (
	VeryCloseRatio = 0.08
	CloseRatio     = 0.15
	SpreadRatio    = 0.25
	CurveRatio     = 0.5
)

// PrayMaxWristDistance is the absolute wrist separation under which two hands count as joined.
const PrayMaxWristDistance = 0.2

// MinAlphabetConfidence is the floor a letter rule must exceed to be reported.
const MinAlphabetConfidence = 0.6

// HandContext is one hand with its derived measurements.
type HandContext struct {
	Hand   *detector.HandLandmarks
	States FingerStateSet
	Size   float64
}

// NewHandContext precomputes finger states and hand size.
func NewHandContext(hand *detector.HandLandmarks) HandContext {
	return HandContext{
		Hand:   hand,
		States: FingerStates(hand),
		Size:   HandSize(hand),
	}
}

// Dist is the planar distance between two landmarks of this hand.
func (c HandContext) Dist(a, b int) float64 {
	return Distance(c.Hand.Points[a], c.Hand.Points[b])
}

// PairContext is a left/right hand pair.
type PairContext struct {
	Left, Right      HandContext
	WristDistance    float64
	IndexTipDistance float64
}

// NewPairContext builds the context for a left and a right hand.
func NewPairContext(left, right *detector.HandLandmarks) PairContext {
	return PairContext{
		Left:             NewHandContext(left),
		Right:            NewHandContext(right),
		WristDistance:    Distance(left.Points[detector.Wrist], right.Points[detector.Wrist]),
		IndexTipDistance: Distance(left.Points[detector.IndexTip], right.Points[detector.IndexTip]),
	}
}

// Rule is one entry of a single-hand table.
type Rule struct {
	Name       Label
	Confidence float64
	Match      func(HandContext) bool
}

// PairRule is one entry of a two-hand table.
type PairRule struct {
	Name       Label
	Confidence float64
	Match      func(PairContext) bool
}

// Gesture labels.
const (
	LabelOK       Label = "OK"
	LabelILoveYou Label = "I Love You"
	LabelFist     Label = "Fist (No/Stop)"
	LabelHello    Label = "Hello/Hi"
	LabelYes      Label = "Yes/Good"
	LabelPeace    Label = "Peace/Victory"
	LabelPray     Label = "Pray/Heart"
)

// GestureRules is the single-hand gesture table. Order matters: the first match wins,
// so Yes/Good is unreachable behind Fist.
var GestureRules = []Rule{
	{LabelOK, 1.0, func(c HandContext) bool {
		return c.Dist(detector.ThumbTip, detector.IndexTip) < c.Size*VeryCloseRatio &&
			c.States.Is(Up, Middle, Ring, Pinky)
	}},
	{LabelILoveYou, 1.0, func(c HandContext) bool {
		return c.States.Is(Up, Thumb, Index, Pinky) && c.States.Is(Down, Middle, Ring)
	}},
	{LabelFist, 1.0, func(c HandContext) bool {
		return c.States.Is(Down, Index, Middle, Ring, Pinky)
	}},
	{LabelHello, 1.0, func(c HandContext) bool {
		return c.States.Is(Up, Thumb, Index, Middle, Ring, Pinky)
	}},
	{LabelYes, 1.0, func(c HandContext) bool {
		return c.States.Is(Up, Thumb) && c.States.Is(Down, Index, Middle, Ring, Pinky)
	}},
	{LabelPeace, 1.0, func(c HandContext) bool {
		return c.States.Is(Up, Index, Middle) && c.States.Is(Down, Ring, Pinky)
	}},
}

// TwoHandRules is evaluated before the single-hand table when a left and a right hand are present.
var TwoHandRules = []PairRule{
	{LabelPray, 1.0, func(p PairContext) bool {
		return p.WristDistance < PrayMaxWristDistance &&
			p.Left.States.Is(Up, Index) && p.Right.States.Is(Up, Index)
	}},
}

// AlphabetRules approximates a subset of the ASL fingerspelling alphabet.
// Several letters share finger shapes; EvaluateBest resolves them by confidence.
var AlphabetRules = []Rule{
	{"A", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Thumb) && c.States.Is(Down, Index, Middle, Ring, Pinky)
	}},
	{"B", 0.9, func(c HandContext) bool {
		return c.States.Is(Down, Thumb) && c.States.Is(Up, Index, Middle, Ring, Pinky)
	}},
	{"C", 0.8, func(c HandContext) bool {
		d := c.Dist(detector.ThumbTip, detector.IndexTip)
		return d > c.Size*SpreadRatio && d < c.Size*CurveRatio && c.States.Is(Up, Thumb, Index)
	}},
	{"D", 0.85, func(c HandContext) bool {
		return c.States.Is(Up, Index) && c.States.Is(Down, Middle, Ring, Pinky)
	}},
	{"E", 0.8, func(c HandContext) bool {
		return c.States.Is(Down, Thumb, Index, Middle, Ring, Pinky)
	}},
	{"F", 0.8, func(c HandContext) bool {
		return c.Dist(detector.ThumbTip, detector.IndexTip) < c.Size*CloseRatio &&
			c.States.Is(Up, Index, Middle)
	}},
	{"G", 0.85, func(c HandContext) bool {
		return c.States.Is(Up, Index) && c.States.Is(Down, Middle, Ring, Pinky)
	}},
	{"H", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Index, Middle) && c.States.Is(Down, Ring, Pinky) &&
			c.Dist(detector.IndexTip, detector.MiddleTip) < c.Size*CloseRatio
	}},
	{"I", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Pinky) && c.States.Is(Down, Index, Middle, Ring)
	}},
	{"K", 0.8, func(c HandContext) bool {
		return c.States.Is(Up, Thumb, Index, Middle)
	}},
	{"L", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Thumb, Index) && c.States.Is(Down, Middle, Ring, Pinky)
	}},
	{"O", 0.8, func(c HandContext) bool {
		return c.Dist(detector.ThumbTip, detector.IndexTip) < c.Size*CloseRatio && c.States.Is(Up, Index)
	}},
	{"V", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Index, Middle) && c.States.Is(Down, Ring, Pinky) &&
			c.Dist(detector.IndexTip, detector.MiddleTip) > c.Size*SpreadRatio
	}},
	{"W", 0.85, func(c HandContext) bool {
		return c.States.Is(Up, Index, Middle, Ring) && c.States.Is(Down, Pinky)
	}},
	{"Y", 0.9, func(c HandContext) bool {
		return c.States.Is(Up, Thumb, Pinky) && c.States.Is(Down, Index, Middle, Ring)
	}},
}

// EvaluateFirst returns the first matching rule.
func EvaluateFirst(rules []Rule, c HandContext) (Rule, bool) {
	for _, r := range rules {
		if r.Match(c) {
			return r, true
		}
	}
	return Rule{}, false
}

// EvaluateBest returns the highest-confidence matching rule whose confidence exceeds floor.
// Ties go to the earlier rule.
func EvaluateBest(rules []Rule, c HandContext, floor float64) (Rule, bool) {
	var best Rule
	found := false
	for _, r := range rules {
		if r.Confidence <= floor {
			continue
		}
		if found && r.Confidence <= best.Confidence {
			continue
		}
		if r.Match(c) {
			best = r
			found = true
		}
	}
	return best, found
}

// EvaluatePair returns the first matching two-hand rule.
func EvaluatePair(rules []PairRule, p PairContext) (PairRule, bool) {
	for _, r := range rules {
		if r.Match(p) {
			return r, true
		}
	}
	return PairRule{}, false
}
