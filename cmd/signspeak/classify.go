package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ayusman/signspeak/internal/config"
	"github.com/ayusman/signspeak/internal/detector"
	"github.com/ayusman/signspeak/internal/gesture"
	"github.com/ayusman/signspeak/internal/logging"
	"github.com/ayusman/signspeak/internal/session"
	"github.com/ayusman/signspeak/internal/stabilizer"
)

// maxLineSize bounds one JSON-lines record: a pose and two hands fit comfortably.
const maxLineSize = 1 << 20

var errEmptyInput = errors.New("no observations in input")

type classifyOptions struct {
	configDir string
	mode      string
	results   bool
	verbose   bool
}

func newClassifyCommand() *cobra.Command {
	var opts classifyOptions
	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Replay recorded observations and print the recognized labels",
		Long: "Replay a JSON-lines file of landmark observations (one frame per line, \"-\" for stdin)\n" +
			"through a session and print every stabilized event as a JSON line.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configDir)
			if err != nil {
				return err
			}
			if opts.mode != "" {
				cfg.Session.Mode = opts.mode
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			logger, closer, err := replayLogger(cfg, opts.verbose, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()
			return classify(cmd.Context(), cfg, in, cmd.OutOrStdout(), opts.results, logger)
		},
	}
	cmd.Flags().StringVar(&opts.configDir, "config", "", "directory containing "+config.FileName)
	cmd.Flags().StringVar(&opts.mode, "mode", "", "classifier mode: gestures, alphabet or sequence")
	cmd.Flags().BoolVar(&opts.results, "results", false, "also print the raw per-frame classification")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of warn")
	return cmd
}

// replayLogger logs to errOut at warn level so diagnostics stay off the event stream.
// verbose restores the configured level.
func replayLogger(cfg config.Config, verbose bool, errOut io.Writer) (zerolog.Logger, io.Closer, error) {
	level := "warn"
	if verbose {
		level = cfg.LogLevel
	}
	return logging.New(logging.Config{
		Level:  level,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
		Out:    errOut,
	})
}

// replayRecord is one line of classify output.
type replayRecord struct {
	Frame  int               `json:"frame"`
	Event  *stabilizer.Event `json:"event,omitempty"`
	Result *gesture.Result   `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// replayClock follows the timestamps of the replayed frames so cooldowns and the inference
// interval behave as they did when the frames were recorded.
type replayClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *replayClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.t) {
		c.t = t
	}
}

func (c *replayClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t.IsZero() {
		return time.Now()
	}
	return c.t
}

func classify(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, results bool, logger zerolog.Logger) error {
	sc, err := sessionConfig(cfg, logger)
	if err != nil {
		return err
	}
	clock := &replayClock{}
	sc.Now = clock.now

	model, err := buildModel(cfg, logger)
	if err != nil {
		return fmt.Errorf("sequence model: %w", err)
	}
	sess, err := session.New(sc, model)
	if err != nil {
		if model != nil {
			model.Close()
		}
		return err
	}
	defer sess.Close()

	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	frames, skipped := 0, 0
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		obs, err := detector.DecodeObservation(data)
		if err != nil {
			logger.Warn().Err(err).Int("line", line).Msg("skipping observation")
			skipped++
			continue
		}
		frames++
		clock.set(obs.Timestamp)

		outcome, err := sess.ProcessFrame(ctx, obs)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		rec := replayRecord{Frame: frames, Event: outcome.Event}
		if results {
			rec.Result = outcome.Result
		}
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}
		if rec.Event == nil && rec.Result == nil && rec.Error == "" {
			continue
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if frames == 0 {
		return errEmptyInput
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Int("frames", frames).Msg("some observations were malformed")
	}
	return nil
}
