package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/signspeak/internal/plugin"
	"github.com/ayusman/signspeak/internal/stabilizer"
	"github.com/ayusman/signspeak/internal/store"
)

// Broadcaster publishes events to live clients.
type Broadcaster interface {
	BroadcastEvent(ev stabilizer.Event)
}

// LabelSink shows the most recent label.
type LabelSink interface {
	SetLastGesture(label string)
}

// DispatcherConfig wires a Dispatcher. Every dependency is optional.
type DispatcherConfig struct {
	SessionID string
	Store     *store.Store
	Hub       Broadcaster
	Plugins   *plugin.Manager
	Executor  *plugin.Executor
	Logger    zerolog.Logger
}

// Dispatcher fans stabilized events out to history, live clients, label sinks and bound
// plugin actions. Plugin actions run asynchronously.
type Dispatcher struct {
	config DispatcherConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	sinks []LabelSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config: cfg,
		logger: cfg.Logger.With().Str("component", "dispatcher").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddSink registers a label sink.
func (d *Dispatcher) AddSink(s LabelSink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Handle processes one event. It is meant to be registered with Session.OnEvent.
func (d *Dispatcher) Handle(ev stabilizer.Event) {
	d.record(ev)

	if d.config.Hub != nil {
		d.config.Hub.BroadcastEvent(ev)
	}

	label := ""
	if ev.Kind == stabilizer.EventLabel {
		label = ev.Label
	}
	d.mu.RLock()
	sinks := append([]LabelSink(nil), d.sinks...)
	d.mu.RUnlock()
	for _, s := range sinks {
		s.SetLastGesture(label)
	}

	if ev.Kind == stabilizer.EventLabel {
		d.runAction(ev)
	}
}

func (d *Dispatcher) record(ev stabilizer.Event) {
	if d.config.Store == nil {
		return
	}
	entry := &store.HistoryEntry{
		ID:         uuid.New().String(),
		SessionID:  d.config.SessionID,
		Kind:       string(ev.Kind),
		Label:      ev.Label,
		Confidence: ev.Confidence,
		Source:     ev.Source,
		CreatedAt:  ev.At,
	}
	if err := d.config.Store.History().Create(entry); err != nil {
		d.logger.Error().Err(err).Str("label", ev.Label).Msg("failed to record history")
	}
}

// HandleSentence records a finished sentence. It is meant to be registered with
// Session.OnSentence.
func (d *Dispatcher) HandleSentence(text string) {
	if d.config.Store == nil {
		return
	}
	entry := &store.HistoryEntry{
		ID:        uuid.New().String(),
		SessionID: d.config.SessionID,
		Kind:      store.KindSentence,
		Label:     text,
		Source:    "alphabet",
		CreatedAt: time.Now(),
	}
	if err := d.config.Store.History().Create(entry); err != nil {
		d.logger.Error().Err(err).Msg("failed to record sentence")
	}
}

func (d *Dispatcher) runAction(ev stabilizer.Event) {
	if d.config.Store == nil || d.config.Plugins == nil || d.config.Executor == nil {
		return
	}

	action, err := d.config.Store.Actions().GetByLabel(ev.Label)
	if err != nil {
		d.logger.Error().Err(err).Str("label", ev.Label).Msg("failed to look up action")
		return
	}
	if action == nil || !action.Enabled {
		return
	}

	p, err := d.config.Plugins.Get(action.PluginName)
	if err != nil {
		d.logger.Warn().Err(err).Str("plugin", action.PluginName).Str("label", ev.Label).Msg("bound plugin unavailable")
		return
	}
	if len(p.Manifest.Actions) > 0 && !p.Manifest.Supports(action.ActionName) {
		d.logger.Warn().Str("plugin", p.Manifest.Name).Str("action", action.ActionName).Msg("plugin does not declare action")
	}

	req := &plugin.Request{
		Action:     action.ActionName,
		Label:      ev.Label,
		Confidence: ev.Confidence,
		Source:     ev.Source,
		SessionID:  d.config.SessionID,
		Config:     action.Config,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		log := d.logger.With().Str("plugin", p.Manifest.Name).Str("action", req.Action).Str("label", req.Label).Logger()

		resp, err := d.config.Executor.Execute(d.ctx, p, req)
		if err != nil {
			log.Error().Err(err).Msg("plugin execution failed")
			return
		}
		if !resp.Success {
			log.Warn().Str("error", resp.Error).Msg("plugin reported failure")
			return
		}
		log.Debug().Msg("plugin action done")
	}()
}

// Wait blocks until in-flight plugin actions finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight plugin actions and waits for them.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
