package app

import (
	"fmt"
	"log/slog"

	"github.com/soocke/gem-bot-go/assets"
	"github.com/soocke/gem-bot-go/config"
	"github.com/soocke/gem-bot-go/domain/action"
	"github.com/soocke/gem-bot-go/domain/adb"
	"github.com/soocke/gem-bot-go/domain/bot"
	"github.com/soocke/gem-bot-go/domain/capture"
	"github.com/soocke/gem-bot-go/domain/ocr"
	"github.com/soocke/gem-bot-go/domain/region"
	"github.com/soocke/gem-bot-go/domain/vision"
)

// Container assembles the services the bot loop depends on.
type Container struct {
	Config    *config.Config
	Logger    *slog.Logger
	ADB       *adb.Client
	Masks     *region.Registry
	Templates *vision.Store
	Matcher   vision.Matcher
	Capture   *capture.Service
	Device    bot.Device
	Reader    *ocr.Reader
	Loop      *bot.Loop
}

// BuildContainer constructs all components. Side-effects are limited to
// template loading; no device command runs here.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger}

	masks, err := cfg.Masks()
	if err != nil {
		return nil, err
	}
	c.Masks = masks

	fsys, err := assets.Open(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}
	c.Templates = vision.NewStore(fsys, vision.StoreOptions{
		Threshold: cfg.ThresholdOptions(),
		DumpDir:   cfg.DumpDir,
	}, logger)
	rules := cfg.BotRules()
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Template)
	}
	if err := c.Templates.LoadAll(names...); err != nil {
		return nil, err
	}

	c.Matcher, err = vision.NewMatcher(cfg.MatcherOptions())
	if err != nil {
		return nil, err
	}

	var driver capture.Driver
	switch cfg.Device.Backend {
	case config.BackendDesktop:
		driver = capture.DesktopDriver{Display: cfg.Device.Display}
		c.Device = action.DesktopDevice{Origin: region.Point{X: cfg.Device.OriginX, Y: cfg.Device.OriginY}}
	default:
		c.ADB = adb.NewClient(cfg.Device.ADBPath, cfg.Device.Serial, logger)
		driver = capture.ADBDriver{Client: c.ADB}
		c.Device = action.ADBDevice{Client: c.ADB}
	}
	c.Capture = capture.NewService(driver, cfg.SnapshotDir, cfg.KeepSnapshots, logger)

	deps := bot.Deps{
		Source:    c.Capture,
		Device:    c.Device,
		Masks:     c.Masks,
		Templates: c.Templates,
		Matcher:   c.Matcher,
		Logger:    logger,
	}
	opts := bot.Options{
		Rules:     rules,
		IdleWait:  cfg.IdleWait(),
		Threshold: cfg.ThresholdOptions(),
	}
	if cfg.OCR.Enabled {
		c.Reader, err = ocr.NewReader(cfg.OCR.Language, cfg.OCR.Whitelist, uint(cfg.OCR.Scale))
		if err != nil {
			return nil, fmt.Errorf("ocr: %w", err)
		}
		deps.Reader = c.Reader
		opts.Readouts = cfg.OCR.Regions
	}

	c.Loop, err = bot.NewLoop(deps, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close releases native resources.
func (c *Container) Close() error {
	if c.Reader != nil {
		return c.Reader.Close()
	}
	return nil
}
