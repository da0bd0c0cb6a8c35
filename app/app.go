package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/soocke/gem-bot-go/config"
	"github.com/soocke/gem-bot-go/debug"
	"github.com/soocke/gem-bot-go/domain/bot"
)

const runtimeLogInterval = 30 * time.Second

// App runs the bot against one device.
type App struct {
	c      *Container
	logger *slog.Logger
	once   bool
}

// New builds the container for cfg. When once is set Run performs a single
// cycle and returns.
func New(cfg *config.Config, logger *slog.Logger, once bool) (*App, error) {
	c, err := BuildContainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{c: c, logger: logger, once: once}, nil
}

// Container exposes the wired services.
func (a *App) Container() *Container { return a.c }

// Run prepares the device and drives the loop until ctx is cancelled or a
// cycle fails. Cancellation is not reported as an error.
func (a *App) Run(ctx context.Context) error {
	defer a.c.Close()
	cfg := a.c.Config

	if err := a.prepareDevice(ctx); err != nil {
		return err
	}
	if cfg.Debug {
		debug.StartRuntimeLogger(ctx, runtimeLogInterval, a.logger)
	}
	a.c.Loop.AddListener(a.logCaptureStats)

	a.logger.Info("bot started",
		"backend", cfg.Device.Backend,
		"strategy", cfg.Vision.Strategy,
		"rules", len(cfg.Rules),
		"templates", a.c.Templates.Len(),
		"snapshots", cfg.SnapshotDir)

	var err error
	if a.once {
		var dec bot.Decision
		dec, err = a.c.Loop.RunCycle(ctx)
		if err == nil {
			a.logger.Info("single cycle", "matched", dec.Matched, "rule", dec.Rule,
				"score", dec.Score, "surface", dec.Surface, "wait", dec.Wait)
		}
	} else {
		err = a.c.Loop.Run(ctx)
	}

	cycles, matched, waiting := a.c.Loop.Session().Values()
	a.logger.Info("bot stopped", "cycles", cycles, "matched", matched, "waited", waiting,
		"avg_cycle", a.c.Loop.Session().AvgCycle())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// prepareDevice connects to a waydroid container and fixes the window size
// so the configured masks line up with the screen.
func (a *App) prepareDevice(ctx context.Context) error {
	client := a.c.ADB
	if client == nil {
		return nil
	}
	cfg := a.c.Config.Device
	if cfg.Waydroid {
		if err := client.ConnectWaydroid(ctx); err != nil {
			return err
		}
	}
	if cfg.WindowSize != "" {
		if err := client.SetWindowSize(ctx, cfg.WindowSize); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) logCaptureStats(prev, next bot.State) {
	if next != bot.StateWaiting {
		return
	}
	st := a.c.Capture.Stats()
	a.logger.Debug("capture stats",
		"captures", st.Captures,
		"failures", st.Failures,
		"avg", st.AvgCapture,
		"seq", st.Sequence)
}
