package capture

import (
	"context"
	"fmt"
	"os"

	"github.com/soocke/gem-bot-go/domain/adb"
)

// ADBDriver captures the device screen with `adb exec-out screencap -p`.
type ADBDriver struct {
	Client *adb.Client
}

// Snapshot streams the PNG into a temporary file and renames it into place
// so readers never see a partial capture.
func (d ADBDriver) Snapshot(ctx context.Context, path string) error {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := d.Client.Screencap(ctx, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}
