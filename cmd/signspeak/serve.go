package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/signspeak/internal/app"
	"github.com/ayusman/signspeak/internal/capture"
	"github.com/ayusman/signspeak/internal/config"
	"github.com/ayusman/signspeak/internal/logging"
	"github.com/ayusman/signspeak/internal/server"
	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/store"
	"github.com/ayusman/signspeak/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var configDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recognizer, the HTTP API and the tray menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	logger, closer, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()
	restoreMode(sess, st, logger)

	hub := server.NewHub(logger)
	application := app.New(app.Config{
		Session:       sess,
		Store:         st,
		Hub:           hub,
		PluginDir:     cfg.Plugins.Dir,
		PluginTimeout: cfg.Plugins.Timeout,
		Camera: capture.Options{
			DeviceID: cfg.Camera.ID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
		},
		MotionThreshold: cfg.Camera.MotionThreshold,
		IdleFPS:         cfg.Camera.IdleFPS,
		ActiveFPS:       cfg.Camera.ActiveFPS,
		Logger:          logger,
	})
	if err := application.DiscoverPlugins(); err != nil {
		logger.Warn().Err(err).Msg("plugin discovery failed")
	}

	cameraOn := cfg.Camera.ID >= 0
	srvCfg := server.Config{
		StaticDir: findWebDir(cfg.HTTP.StaticDir, cfg.DataDir),
		Store:     st,
		Session:   sess,
		Hub:       hub,
		Logger:    logger,
	}
	if cameraOn {
		srvCfg.Camera = application.Camera()
	}
	if srvCfg.StaticDir != "" {
		logger.Info().Str("dir", srvCfg.StaticDir).Msg("serving static files")
	}
	srv := server.New(srvCfg)

	if cameraOn {
		if err := application.Start(); err != nil {
			logger.Error().Err(err).Int("camera", cfg.Camera.ID).Msg("camera unavailable, accepting landmark frames only")
		}
	} else {
		logger.Info().Msg("camera disabled, accepting landmark frames only")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	var serveErr error
	if cfg.Tray.Enabled {
		serveErr = runTray(ctx, stop, errc, application, sess, st, cfg.HTTP.Addr, logger)
	} else {
		select {
		case <-ctx.Done():
		case serveErr = <-errc:
		}
	}

	logger.Info().Msg("shutting down")
	application.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return serveErr
}

// runTray blocks in the tray loop until the menu quits, ctx ends or the server fails.
func runTray(ctx context.Context, stop context.CancelFunc, errc <-chan error, application *app.App,
	sess *session.Session, st *store.Store, addr string, logger zerolog.Logger) error {
	t := tray.New(sess.Mode())
	application.Dispatcher().AddSink(t)

	t.OnToggle(application.SetEnabled)
	t.OnMode(func(m session.Mode) error {
		if err := sess.SetMode(m); err != nil {
			logger.Warn().Err(err).Str("mode", string(m)).Msg("mode change rejected")
			return err
		}
		if err := st.Settings().Set(store.SettingMode, string(m)); err != nil {
			logger.Warn().Err(err).Msg("failed to persist mode")
		}
		return nil
	})
	t.OnReset(sess.Reset)
	t.OnSettings(func() {
		if err := openBrowser(localURL(addr)); err != nil {
			logger.Warn().Err(err).Msg("failed to open browser")
		}
	})
	t.OnQuit(stop)

	result := make(chan error, 1)
	go func() {
		var err error
		select {
		case <-ctx.Done():
		case err = <-errc:
		}
		t.Quit()
		result <- err
	}()

	t.Run()
	stop()
	return <-result
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir returns the first existing directory among configured, "web", "../web",
// "../../web" and dataDir/web, or "" when none exists.
func findWebDir(configured, dataDir string) string {
	candidates := []string{configured, "web", "../web", "../../web"}
	if dataDir != "" {
		candidates = append(candidates, filepath.Join(dataDir, "web"))
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
