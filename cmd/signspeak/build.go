package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ayusman/signspeak/internal/config"
	"github.com/ayusman/signspeak/internal/sequence"
	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/stabilizer"
	"github.com/ayusman/signspeak/internal/store"
)

// buildModel returns the configured sequence classifier, or nil when none is configured.
// A local model file takes precedence over a remote endpoint.
func buildModel(cfg config.Config, logger zerolog.Logger) (*sequence.Classifier, error) {
	if !cfg.Model.Enabled() {
		return nil, nil
	}

	labels := sequence.LabelSet{
		Classes: cfg.Model.Labels,
		Display: cfg.Model.Display,
		Nothing: cfg.Model.Nothing,
		Version: cfg.Model.Version,
	}

	var model sequence.Model
	if cfg.Model.Path != "" {
		m, err := sequence.NewONNXModel(cfg.Model.Path)
		if err != nil {
			return nil, err
		}
		model = m
		logger.Info().Str("path", cfg.Model.Path).Msg("loaded sequence model")
	} else {
		model = sequence.NewRemoteModel(cfg.Model.RemoteURL, cfg.Model.Version, cfg.Model.Timeout)
		logger.Info().Str("url", cfg.Model.RemoteURL).Msg("using remote sequence model")
	}

	c, err := sequence.NewClassifier(model, sequence.Config{
		WindowSize: cfg.Session.WindowSize,
		Labels:     labels,
		Logger:     logger,
	})
	if err != nil {
		model.Close()
		return nil, err
	}
	return c, nil
}

// sessionConfig maps the file configuration onto session options.
func sessionConfig(cfg config.Config, logger zerolog.Logger) (session.Config, error) {
	mode, err := session.ParseMode(cfg.Session.Mode)
	if err != nil {
		return session.Config{}, err
	}

	sc := session.DefaultConfig()
	sc.Mode = mode
	sc.MinInferenceInterval = cfg.Session.MinInferenceInterval
	if cfg.Session.WindowSize > 0 {
		sc.WindowSize = cfg.Session.WindowSize
	}
	sc.Rules = debounce(stabilizer.RulesConfig(), cfg.Stabilizer.Rules)
	sc.Sequence = debounce(stabilizer.SequenceConfig(), cfg.Stabilizer.Sequence)
	sc.Logger = logger
	return sc, nil
}

func debounce(base stabilizer.Config, d config.DebounceConfig) stabilizer.Config {
	base.Threshold = d.Threshold
	if d.Cooldown > 0 {
		base.Cooldown = d.Cooldown
	}
	return base
}

// restoreMode applies the mode saved by a previous run. An unusable saved mode is ignored.
func restoreMode(sess *session.Session, st *store.Store, logger zerolog.Logger) {
	saved, err := st.Settings().Get(store.SettingMode)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).Msg("failed to read saved mode")
		}
		return
	}
	mode, err := session.ParseMode(saved)
	if err == nil {
		err = sess.SetMode(mode)
	}
	if err != nil {
		logger.Warn().Err(err).Str("mode", saved).Msg("ignoring saved mode")
		return
	}
	logger.Debug().Str("mode", saved).Msg("restored saved mode")
}

func newSession(cfg config.Config, logger zerolog.Logger) (*session.Session, error) {
	sc, err := sessionConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	model, err := buildModel(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sequence model: %w", err)
	}
	sess, err := session.New(sc, model)
	if err != nil {
		if model != nil {
			model.Close()
		}
		return nil, err
	}
	return sess, nil
}
