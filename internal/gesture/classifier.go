// Package gesture turns tracked hands into gesture and letter labels using ordered
// rule tables over finger states and relative distances.
package gesture

import "github.com/ayusman/signspeak/internal/detector"

// Source identifies which classifier produced a result.
type Source string

const (
	SourceRules    Source = "rules"
	SourceAlphabet Source = "alphabet"
	SourceSequence Source = "sequence"
)

// AllHands marks a result that does not belong to a single hand.
const AllHands = -1

// Result is a classification of one frame.
type Result struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
	// Hand is the index into Observation.Hands, or AllHands.
	Hand int `json:"hand"`
}

// Selection decides how a single-hand table is scanned.
type Selection int

const (
	// FirstMatch returns the first rule that matches.
	FirstMatch Selection = iota
	// BestMatch returns the highest-confidence rule above MinConfidence.
	BestMatch
)

// Config describes one classifier.
type Config struct {
	Source        Source
	Rules         []Rule
	PairRules     []PairRule
	Selection     Selection
	MinConfidence float64
}

// GesturesConfig is the gesture table with the two-hand rules.
func GesturesConfig() Config {
	return Config{
		Source:    SourceRules,
		Rules:     GestureRules,
		PairRules: TwoHandRules,
		Selection: FirstMatch,
	}
}

// AlphabetConfig is the fingerspelling table.
func AlphabetConfig() Config {
	return Config{
		Source:        SourceAlphabet,
		Rules:         AlphabetRules,
		Selection:     BestMatch,
		MinConfidence: MinAlphabetConfidence,
	}
}

// Classifier evaluates rule tables against observations. It holds no state between frames.
type Classifier struct {
	config Config
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{config: cfg}
}

// Source returns the source reported in results.
func (c *Classifier) Source() Source {
	return c.config.Source
}

// Classify labels the hands in obs. Only the first two hands are considered.
// It returns false when no rule matches.
func (c *Classifier) Classify(obs detector.Observation) (Result, bool) {
	hands := obs.Hands
	if len(hands) > 2 {
		hands = hands[:2]
	}
	if len(hands) == 0 {
		return Result{}, false
	}

	left, right := pairIndices(hands)
	if left >= 0 && len(c.config.PairRules) > 0 {
		pair := NewPairContext(&hands[left], &hands[right])
		if r, ok := EvaluatePair(c.config.PairRules, pair); ok {
			return Result{Label: r.Name, Confidence: r.Confidence, Source: c.config.Source, Hand: AllHands}, true
		}
	}

	for _, i := range evaluationOrder(hands, left, right) {
		if r, ok := c.ClassifyHand(&hands[i]); ok {
			return Result{Label: r.Name, Confidence: r.Confidence, Source: c.config.Source, Hand: i}, true
		}
	}
	return Result{}, false
}

// ClassifyHand evaluates the single-hand table for one hand.
func (c *Classifier) ClassifyHand(hand *detector.HandLandmarks) (Rule, bool) {
	ctx := NewHandContext(hand)
	if c.config.Selection == BestMatch {
		return EvaluateBest(c.config.Rules, ctx, c.config.MinConfidence)
	}
	return EvaluateFirst(c.config.Rules, ctx)
}

// pairIndices returns the indices of the left and right hands when the pair is exactly
// one Left and one Right, otherwise -1, -1.
func pairIndices(hands []detector.HandLandmarks) (int, int) {
	if len(hands) != 2 {
		return -1, -1
	}
	switch {
	case hands[0].Handedness == detector.Left && hands[1].Handedness == detector.Right:
		return 0, 1
	case hands[0].Handedness == detector.Right && hands[1].Handedness == detector.Left:
		return 1, 0
	}
	return -1, -1
}

func evaluationOrder(hands []detector.HandLandmarks, left, right int) []int {
	if left >= 0 {
		return []int{left, right}
	}
	order := make([]int, len(hands))
	for i := range hands {
		order[i] = i
	}
	return order
}
