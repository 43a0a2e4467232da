// Package app wires the camera, motion gate, landmark detector and session into the running
// recognizer, and dispatches its events.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/logging"
	"github.com/ayusman/signspeak/internal/plugin"
	"github.com/ayusman/signspeak/internal/server"
	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/store"
)

// Pipeline timing defaults.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
)

// Config holds configuration options for the application.
type Config struct {
	Session *session.Session
	Store   *store.Store
	Hub     *server.Hub

	PluginDir     string
	PluginTimeout time.Duration

	Camera          capture.Options
	MotionThreshold float64
	IdleFPS         int
	ActiveFPS       int
	IdleTimeout     time.Duration

	Logger zerolog.Logger
}

// App is the running recognizer.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionDetector
	gate       *capture.Gate
	detector   detector.Detector
	session    *session.Session
	dispatcher *Dispatcher
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	logger   zerolog.Logger
	frameLog zerolog.Logger

	enabled bool
	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an App around cfg.Session. The detector defaults to MediaPipe and falls back to
// a mock that never sees hands.
func New(cfg Config) *App {
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = DefaultMotionThreshold
	}
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = IdleTimeout
	}
	if cfg.Camera.FPS <= 0 {
		cfg.Camera.FPS = cfg.IdleFPS
	}

	logger := cfg.Logger.With().Str("component", "app").Logger()
	pluginMgr := plugin.NewManager(cfg.PluginDir, cfg.Logger)
	pluginExec := plugin.NewExecutor(cfg.PluginTimeout)

	a := &App{
		config:     cfg,
		camera:     capture.NewCamera(cfg.Camera),
		motion:     capture.NewMotionDetector(cfg.MotionThreshold),
		gate:       capture.NewGate(cfg.IdleFPS, cfg.ActiveFPS, cfg.IdleTimeout, nil),
		session:    cfg.Session,
		pluginMgr:  pluginMgr,
		pluginExec: pluginExec,
		logger:     logger,
		frameLog:   logging.Sampled(logger),
		enabled:    true,
	}

	var hub Broadcaster
	if cfg.Hub != nil {
		hub = cfg.Hub
	}
	a.dispatcher = NewDispatcher(DispatcherConfig{
		SessionID: cfg.Session.ID(),
		Store:     cfg.Store,
		Hub:       hub,
		Plugins:   pluginMgr,
		Executor:  pluginExec,
		Logger:    cfg.Logger,
	})
	cfg.Session.OnEvent(a.dispatcher.Handle)
	cfg.Session.OnSentence(a.dispatcher.HandleSentence)

	if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
		a.detector = mp
		logger.Info().Msg("using MediaPipe landmark detection")
	} else {
		logger.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables recognition.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.logger.Info().Bool("enabled", enabled).Msg("recognition toggled")
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the landmark detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}
	a.logger.Info().Int("plugins", len(a.pluginMgr.List())).Str("dir", a.pluginMgr.PluginDir()).Msg("plugins discovered")
	return nil
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.FPS())

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.done)

	a.logger.Info().Str("mode", string(a.session.Mode())).Msg("detection pipeline started")
	return nil
}

// Stop halts the pipeline, waits for in-flight plugin actions and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	a.dispatcher.Close()

	if err := a.camera.Close(); err != nil {
		a.logger.Error().Err(err).Msg("error closing camera")
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.logger.Error().Err(err).Msg("error closing detector")
		}
	}

	a.logger.Info().Msg("detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Session returns the session the pipeline feeds.
func (a *App) Session() *session.Session {
	return a.session
}

// Dispatcher returns the event dispatcher.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
