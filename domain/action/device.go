// Package action dispatches synthetic input to the device under automation.
package action

import (
	"context"
	"time"

	"github.com/soocke/gem-bot-go/domain/adb"
	"github.com/soocke/gem-bot-go/domain/region"
)

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ADBDevice taps through `adb shell input tap`.
type ADBDevice struct {
	Client *adb.Client
}

func (d ADBDevice) Tap(ctx context.Context, p region.Point) error {
	return d.Client.Tap(ctx, p.X, p.Y)
}

func (d ADBDevice) Sleep(ctx context.Context, dur time.Duration) error { return Sleep(ctx, dur) }
