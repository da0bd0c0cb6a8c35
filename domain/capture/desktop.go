package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	kscreenshot "github.com/kbinani/screenshot"
	"github.com/vova616/screenshot"
)

// DesktopDriver captures a local display, for example a scrcpy mirror of
// the device. Display < 0 grabs the primary screen; otherwise the display
// with that index is captured.
type DesktopDriver struct {
	Display int
}

// Grab returns a screen capture of the configured display.
func (d DesktopDriver) Grab() (*image.RGBA, error) {
	if d.Display < 0 {
		return screenshot.CaptureScreen()
	}
	if n := kscreenshot.NumActiveDisplays(); d.Display >= n {
		return nil, fmt.Errorf("display %d not available (%d active)", d.Display, n)
	}
	return kscreenshot.CaptureRect(kscreenshot.GetDisplayBounds(d.Display))
}

// Snapshot writes the capture to path as PNG.
func (d DesktopDriver) Snapshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := d.Grab()
	if err != nil {
		return fmt.Errorf("capture display %d: %w", d.Display, err)
	}
	return imaging.Save(img, path)
}
