// Package stabilizer debounces raw classifier output into discrete label events.
package stabilizer

import (
	"sync"
	"time"
)

// Nothing is the conventional "no gesture" label.
const Nothing = "Nothing"

// Kind distinguishes the events a Stabilizer emits.
type Kind string

const (
	// EventLabel announces a new label.
	EventLabel Kind = "label"
	// EventCleared tells consumers to drop the displayed label.
	EventCleared Kind = "cleared"
)

// Event is a stabilized output.
type Event struct {
	Kind       Kind      `json:"kind"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source,omitempty"`
	At         time.Time `json:"at"`
}

// Config controls thresholding and debounce.
type Config struct {
	// Threshold is the minimum confidence a result needs to be considered.
	Threshold float64

	// Cooldown blocks any new label for this long after an emission.
	Cooldown time.Duration

	// Nothing is the label that clears the display.
	Nothing string
}

// RulesConfig is tuned for the rule-based classifiers.
func RulesConfig() Config {
	return Config{
		Threshold: 0.6,
		Cooldown:  800 * time.Millisecond,
		Nothing:   Nothing,
	}
}

// SequenceConfig is tuned for the sequence model.
func SequenceConfig() Config {
	return Config{
		Threshold: 0.9,
		Cooldown:  1500 * time.Millisecond,
		Nothing:   Nothing,
	}
}

// Stabilizer turns a stream of (label, confidence) results into events. Each call to
// Process is one atomic state transition.
type Stabilizer struct {
	mu            sync.Mutex
	config        Config
	now           func() time.Time
	lastEmitted   string
	cooldownUntil time.Time
}

// New creates a Stabilizer. A nil now uses time.Now.
func New(cfg Config, now func() time.Time) *Stabilizer {
	if now == nil {
		now = time.Now
	}
	return &Stabilizer{config: cfg, now: now}
}

// Process applies one classification result and returns the event it causes, if any.
//
// Results below the threshold are ignored. A confident Nothing emits EventCleared only
// while a label is displayed; with nothing displayed it emits no event, so repeated
// Nothing results never produce a run of cleared events. Clearing ignores the cooldown.
// Any other label is emitted when it differs from the displayed one and the cooldown
// has passed.
func (s *Stabilizer) Process(label string, confidence float64, source string) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if confidence < s.config.Threshold {
		return Event{}, false
	}

	now := s.now()

	if label == s.config.Nothing {
		if s.lastEmitted == "" {
			return Event{}, false
		}
		s.lastEmitted = ""
		return Event{Kind: EventCleared, Confidence: confidence, Source: source, At: now}, true
	}

	if now.Before(s.cooldownUntil) {
		return Event{}, false
	}

	if label == s.lastEmitted {
		return Event{}, false
	}

	s.lastEmitted = label
	s.cooldownUntil = now.Add(s.config.Cooldown)
	return Event{Kind: EventLabel, Label: label, Confidence: confidence, Source: source, At: now}, true
}

// Current returns the last emitted label, or "" if none is displayed.
func (s *Stabilizer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEmitted
}

// Reset returns to the initial state.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmitted = ""
	s.cooldownUntil = time.Time{}
}

// SetConfig swaps thresholds. The displayed label and cooldown are kept.
func (s *Stabilizer) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// Config returns the active configuration.
func (s *Stabilizer) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}
