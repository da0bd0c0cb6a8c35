package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/soocke/gem-bot-go/assets"
	"github.com/soocke/gem-bot-go/config"
	"github.com/soocke/gem-bot-go/domain/bot"
	"github.com/soocke/gem-bot-go/domain/vision"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeTemplate(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 230})
			}
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeTemplate(t, dir, assets.ClaimGems)
	writeTemplate(t, dir, assets.RetryRun)
	cfg := config.DefaultConfig()
	cfg.AssetsDir = dir
	cfg.SnapshotDir = filepath.Join(t.TempDir(), "snapshots")
	cfg.Device.ADBPath = filepath.Join(dir, "no-such-adb")
	cfg.Device.Waydroid = false
	cfg.Device.WindowSize = ""
	return cfg
}

func TestBuildContainer_WiresServices(t *testing.T) {
	c, err := BuildContainer(testConfig(t), discardLogger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if c.Templates.Len() != 2 || c.ADB == nil || c.Loop == nil || c.Reader != nil {
		t.Fatalf("unexpected container %+v", c)
	}
}

func TestBuildContainer_DesktopBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.Backend = config.BackendDesktop
	cfg.Vision.Strategy = vision.StrategyNearest
	c, err := BuildContainer(cfg, discardLogger)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if c.ADB != nil {
		t.Fatalf("desktop backend must not create an adb client")
	}
}

func TestBuildContainer_MissingTemplate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rules[1].Template = "absent.png"
	if _, err := BuildContainer(cfg, discardLogger); !errors.Is(err, vision.ErrTemplateLoad) {
		t.Fatalf("expected ErrTemplateLoad, got %v", err)
	}
}

func TestBuildContainer_DumpsTemplates(t *testing.T) {
	cfg := testConfig(t)
	cfg.DumpDir = t.TempDir()
	if _, err := BuildContainer(cfg, discardLogger); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.DumpDir, assets.ClaimGems)); err != nil {
		t.Fatalf("binarized template not dumped: %v", err)
	}
}

func TestApp_OnceSurfacesCaptureError(t *testing.T) {
	a, err := New(testConfig(t), discardLogger, true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Run(context.Background()); !errors.Is(err, bot.ErrCapture) {
		t.Fatalf("expected ErrCapture, got %v", err)
	}
}

func TestApp_CancelledRunIsClean(t *testing.T) {
	a, err := New(testConfig(t), discardLogger, false)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.Run(ctx)
	if err != nil && !errors.Is(err, bot.ErrCapture) {
		t.Fatalf("unexpected error %v", err)
	}
}
