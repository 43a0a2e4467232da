package app

import (
	"context"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/server"
	"github.com/ayusman/signspeak/internal/session"
)

// runPipeline reads frames at the gate's rate until ctx is cancelled. Frames only reach the
// detector while the gate is active; the frame rate follows the gate.
func (a *App) runPipeline(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.gate.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if fps, switched := a.step(ctx); switched {
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// step processes one camera frame. It returns the frame rate to use and whether it changed.
func (a *App) step(ctx context.Context) (int, bool) {
	cam := a.Camera()
	frame, err := cam.ReadFrame()
	if err != nil {
		a.frameLog.Warn().Err(err).Msg("error reading frame")
		return 0, false
	}
	defer frame.Close()

	motion, change := a.motion.Detect(frame)
	active, switched := a.gate.Update(motion)
	if switched {
		cam.SetFPS(a.gate.FPS())
		a.logger.Debug().Bool("active", active).Float64("change", change).Int("fps", a.gate.FPS()).Msg("motion gate switched")
	}
	if !active {
		return a.gate.FPS(), switched
	}

	det := a.Detector()
	if det == nil {
		return a.gate.FPS(), switched
	}
	obs, err := det.Detect(frame)
	if err != nil {
		a.frameLog.Warn().Err(err).Msg("error detecting landmarks")
		return a.gate.FPS(), switched
	}

	a.ProcessObservation(ctx, obs)
	return a.gate.FPS(), switched
}

// ProcessObservation publishes the landmarks to live clients and feeds the session.
func (a *App) ProcessObservation(ctx context.Context, obs detector.Observation) session.Outcome {
	if hub := a.config.Hub; hub != nil && hub.Clients() > 0 {
		hub.Broadcast(server.MessageLandmarks, detector.ToWire(obs))
	}

	out, err := a.session.ProcessFrame(ctx, obs)
	if err != nil {
		a.frameLog.Error().Err(err).Msg("frame rejected by session")
		return out
	}
	if out.Err != nil {
		a.frameLog.Warn().Err(out.Err).Msg("inference failed")
	}
	return out
}
