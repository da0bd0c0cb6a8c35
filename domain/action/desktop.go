package action

import (
	"context"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/soocke/gem-bot-go/domain/region"
)

// DesktopDevice clicks on the local desktop, offset by the origin of the
// mirrored device window.
type DesktopDevice struct {
	Origin region.Point
}

func (d DesktopDevice) Tap(ctx context.Context, p region.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(d.Origin.X+p.X, d.Origin.Y+p.Y)
	robotgo.MilliSleep(30)
	robotgo.Click("left", false)
	return nil
}

func (d DesktopDevice) Sleep(ctx context.Context, dur time.Duration) error { return Sleep(ctx, dur) }
