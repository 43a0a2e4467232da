// Package session ties the classifiers, the temporal window and the stabilizer into one
// tracking session fed frame by frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/feature"
	"github.com/ayusman/signspeak/internal/gesture"
	"github.com/ayusman/signspeak/internal/sequence"
	"github.com/ayusman/signspeak/internal/stabilizer"
)

var (
	// ErrNoModel is returned when sequence mode is requested without a sequence model.
	ErrNoModel = errors.New("sequence mode requires a model")

	// ErrUnknownMode is returned for an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown mode")
)

// Mode selects which classifier drives the session.
type Mode string

const (
	ModeGestures Mode = "gestures"
	ModeAlphabet Mode = "alphabet"
	ModeSequence Mode = "sequence"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeGestures, ModeAlphabet, ModeSequence:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Config holds session options.
type Config struct {
	Mode Mode

	// MinInferenceInterval is the minimum time between two sequence model runs.
	// Frames arriving in between are only buffered.
	MinInferenceInterval time.Duration

	// WindowSize is used when no sequence model is configured.
	WindowSize int

	Feature  feature.Config
	Rules    stabilizer.Config
	Sequence stabilizer.Config

	Logger zerolog.Logger

	// Now overrides the clock for the stabilizer and the inference limiter.
	Now func() time.Time
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Mode:                 ModeGestures,
		MinInferenceInterval: 100 * time.Millisecond,
		WindowSize:           sequence.DefaultWindowSize,
		Feature:              feature.DefaultConfig(),
		Rules:                stabilizer.RulesConfig(),
		Sequence:             stabilizer.SequenceConfig(),
		Logger:               zerolog.Nop(),
	}
}

// Outcome is what one frame produced. All fields may be nil.
type Outcome struct {
	// Result is the raw classification, before stabilization.
	Result *gesture.Result `json:"result,omitempty"`
	// Event is set when the stabilizer emitted.
	Event *stabilizer.Event `json:"event,omitempty"`
	// Err reports an inference failure; the displayed label is unaffected.
	Err error `json:"-"`
}

// Status is a snapshot of the session for display.
type Status struct {
	ID        string `json:"id"`
	Mode      Mode   `json:"mode"`
	Current   string `json:"current"`
	WindowLen int    `json:"windowLen"`
	WindowCap int    `json:"windowCap"`
	HasModel  bool   `json:"hasModel"`
	Sentence  string `json:"sentence"`
}

// Session is one tracking session. It is safe for concurrent use, although frames are
// expected from a single producer.
type Session struct {
	id     string
	config Config
	logger zerolog.Logger
	now    func() time.Time

	builder  *feature.Builder
	window   *sequence.Window
	gestures *gesture.Classifier
	alphabet *gesture.Classifier
	model    *sequence.Classifier
	stab     *stabilizer.Stabilizer
	limiter  *rate.Limiter

	mu         sync.Mutex
	mode       Mode
	generation uint64
	sentence   Sentence

	subMu       sync.RWMutex
	subscribers []func(stabilizer.Event)
	sentenceFns []func(string)
}

// New creates a Session. model may be nil, in which case sequence mode is unavailable.
func New(cfg Config, model *sequence.Classifier) (*Session, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeGestures
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeSequence && model == nil {
		return nil, ErrNoModel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	size := cfg.WindowSize
	if model != nil {
		size = model.WindowSize()
	}

	limit := rate.Inf
	if cfg.MinInferenceInterval > 0 {
		limit = rate.Every(cfg.MinInferenceInterval)
	}

	if model != nil {
		if nothing := model.Labels().NothingDisplay(); nothing != "" {
			cfg.Sequence.Nothing = nothing
		}
	}

	s := &Session{
		id:       uuid.New().String(),
		config:   cfg,
		now:      cfg.Now,
		builder:  feature.NewBuilder(cfg.Feature),
		window:   sequence.NewWindow(size),
		gestures: gesture.NewClassifier(gesture.GesturesConfig()),
		alphabet: gesture.NewClassifier(gesture.AlphabetConfig()),
		model:    model,
		limiter:  rate.NewLimiter(limit, 1),
		mode:     cfg.Mode,
	}
	s.logger = cfg.Logger.With().Str("session", s.id).Logger()
	s.stab = stabilizer.New(s.stabilizerConfig(cfg.Mode), cfg.Now)

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches classifiers. The window is kept; the displayed label survives
// until the next event.
func (s *Session) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	if m == ModeSequence && s.model == nil {
		return ErrNoModel
	}

	s.mu.Lock()
	prev := s.mode
	s.mode = m
	s.mu.Unlock()

	s.stab.SetConfig(s.stabilizerConfig(m))
	if prev != m {
		s.logger.Info().Str("from", string(prev)).Str("mode", string(m)).Msg("mode changed")
	}
	return nil
}

// Current returns the displayed label, or "" if none.
func (s *Session) Current() string {
	return s.stab.Current()
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	return Status{
		ID:        s.id,
		Mode:      s.Mode(),
		Current:   s.Current(),
		WindowLen: s.window.Len(),
		WindowCap: s.window.Cap(),
		HasModel:  s.model != nil,
		Sentence:  s.Sentence(),
	}
}

// Reset clears the window and the stabilizer. Any inference in flight is discarded.
// The sentence is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	s.generation++
	s.window.Reset()
	s.stab.Reset()
	s.mu.Unlock()

	s.logger.Debug().Msg("session reset")
}

// Sentence returns the fingerspelled text so far.
func (s *Session) Sentence() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentence.Text()
}

// AddSpace ends the current word and returns the sentence.
func (s *Session) AddSpace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentence.AddSpace()
	return s.sentence.Text()
}

// ClearSentence empties the sentence and returns what it held. A sentence with any
// non-blank text is passed to the OnSentence subscribers.
func (s *Session) ClearSentence() string {
	s.mu.Lock()
	text := s.sentence.Clear()
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return text
	}
	s.logger.Info().Str("sentence", text).Msg("sentence finished")

	s.subMu.RLock()
	fns := append([]func(string){}, s.sentenceFns...)
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(text)
	}
	return text
}

// OnSentence registers fn to be called with every finished sentence.
func (s *Session) OnSentence(fn func(string)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.sentenceFns = append(s.sentenceFns, fn)
}

// OnEvent registers fn to be called for every emitted event.
func (s *Session) OnEvent(fn func(stabilizer.Event)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// ProcessJSON decodes a wire observation and processes it. Malformed landmark sets are
// rejected before anything is buffered.
func (s *Session) ProcessJSON(ctx context.Context, data []byte) (Outcome, error) {
	obs, err := detector.DecodeObservation(data)
	if err != nil {
		return Outcome{}, err
	}
	return s.ProcessFrame(ctx, obs)
}

// ProcessFrame handles one observation. Every frame is buffered regardless of mode.
// The returned error is reserved for misconfiguration; inference failures are reported
// through Outcome.Err.
func (s *Session) ProcessFrame(ctx context.Context, obs detector.Observation) (Outcome, error) {
	s.window.Push(s.builder.Build(obs))

	s.mu.Lock()
	mode := s.mode
	gen := s.generation
	s.mu.Unlock()

	switch mode {
	case ModeGestures:
		return s.classifyRules(s.gestures, obs, gen), nil
	case ModeAlphabet:
		return s.classifyRules(s.alphabet, obs, gen), nil
	case ModeSequence:
		return s.classifySequence(ctx, gen)
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func (s *Session) classifyRules(c *gesture.Classifier, obs detector.Observation, gen uint64) Outcome {
	res, ok := c.Classify(obs)
	if !ok {
		if len(obs.Hands) == 0 {
			return s.stabilize(gen, nil, s.stab.Config().Nothing, 1.0, c.Source())
		}
		return Outcome{}
	}
	return s.stabilize(gen, &res, string(res.Label), res.Confidence, res.Source)
}

func (s *Session) classifySequence(ctx context.Context, gen uint64) (Outcome, error) {
	if s.model == nil {
		return Outcome{}, ErrNoModel
	}
	if !s.window.IsFull() {
		return Outcome{}, nil
	}
	if !s.limiter.AllowN(s.now(), 1) {
		return Outcome{}, nil
	}

	window := s.window.Snapshot()
	if s.stale(gen) {
		return Outcome{}, nil
	}

	dist, err := s.model.Classify(ctx, window)
	if err != nil {
		if s.stale(gen) {
			return Outcome{}, nil
		}
		s.logger.Warn().Err(err).Msg("sequence inference failed")
		return Outcome{Err: err}, nil
	}

	label, p := dist.Top()
	res := &gesture.Result{
		Label:      gesture.Label(label),
		Confidence: p,
		Source:     gesture.SourceSequence,
		Hand:       gesture.AllHands,
	}
	return s.stabilize(gen, res, label, p, gesture.SourceSequence), nil
}

func (s *Session) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug().Msg("discarding inference from before reset")
		return true
	}
	return false
}

// stabilize feeds one result to the stabilizer unless the session was reset after the
// frame's generation was taken. Letter events extend the sentence.
func (s *Session) stabilize(gen uint64, res *gesture.Result, label string, confidence float64, source gesture.Source) Outcome {
	out := Outcome{Result: res}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding inference from before reset")
		return Outcome{}
	}
	ev, ok := s.stab.Process(label, confidence, string(source))
	if ok && ev.Kind == stabilizer.EventLabel && source == gesture.SourceAlphabet {
		s.sentence.AddLetter(ev.Label)
	}
	s.mu.Unlock()

	if !ok {
		return out
	}
	out.Event = &ev

	s.logger.Info().
		Str("kind", string(ev.Kind)).
		Str("label", ev.Label).
		Float64("confidence", ev.Confidence).
		Str("source", ev.Source).
		Msg("gesture event")

	s.subMu.RLock()
	subs := append([]func(stabilizer.Event){}, s.subscribers...)
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
	return out
}

func (s *Session) stabilizerConfig(m Mode) stabilizer.Config {
	if m == ModeSequence {
		return s.config.Sequence
	}
	return s.config.Rules
}

// Close releases the sequence model.
func (s *Session) Close() error {
	if s.model != nil {
		return s.model.Close()
	}
	return nil
}
