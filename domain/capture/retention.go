package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Retention keeps at most Keep PNG snapshots in Dir, deleting the oldest by
// modification time. Keep <= 0 disables pruning.
type Retention struct {
	Dir    string
	Keep   int
	Logger *slog.Logger
}

type snapshotFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Prune deletes the oldest snapshots beyond Keep and returns how many files
// were removed.
func (r Retention) Prune() (int, error) {
	if r.Keep <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return 0, fmt.Errorf("read snapshots directory: %w", err)
	}
	files := make([]snapshotFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, snapshotFile{path: filepath.Join(r.Dir, e.Name()), size: info.Size(), modTime: info.ModTime()})
	}
	if len(files) <= r.Keep {
		return 0, nil
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	var freed uint64
	stale := files[:len(files)-r.Keep]
	for _, f := range stale {
		if r.Logger != nil {
			r.Logger.Debug("removing old snapshot", "path", f.path)
		}
		if err := os.Remove(f.path); err != nil {
			return 0, fmt.Errorf("remove old snapshot %s: %w", f.path, err)
		}
		freed += uint64(f.size)
	}
	if r.Logger != nil {
		r.Logger.Debug("snapshots pruned", "removed", len(stale), "kept", r.Keep, "freed", humanize.Bytes(freed))
	}
	return len(stale), nil
}
