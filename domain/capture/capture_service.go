package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
)

// snapshotLayout names snapshot files, e.g. screen_2025-01-31T18-04-05.png.
const snapshotLayout = "2006-01-02T15-04-05"

// SnapshotName returns the file name for a capture taken at t.
func SnapshotName(t time.Time) string {
	return "screen_" + t.Format(snapshotLayout) + ".png"
}

// Service takes snapshots through a Driver into a directory, prunes old
// files and decodes the fresh capture. Calls are blocking and meant for a
// single caller; the counters are atomic so Stats may be read from elsewhere.
type Service struct {
	driver    Driver
	dir       string
	retention Retention
	logger    *slog.Logger
	now       func() time.Time

	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
	last         atomic.Int64
}

// NewService constructs a capture service writing into dir. The retention
// policy is applied to dir after every capture.
func NewService(driver Driver, dir string, keep int, logger *slog.Logger) *Service {
	return &Service{
		driver:    driver,
		dir:       dir,
		retention: Retention{Dir: dir, Keep: keep, Logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// Take captures, prunes and decodes one snapshot. Any failure is returned;
// callers must not fall back to an older screen.
func (s *Service) Take(ctx context.Context) (Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create snapshots directory: %w", err)
	}
	start := s.now()
	path := filepath.Join(s.dir, SnapshotName(start))
	if err := s.driver.Snapshot(ctx, path); err != nil {
		s.failures.Add(1)
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if _, err := s.retention.Prune(); err != nil {
		return Snapshot{}, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		s.failures.Add(1)
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	elapsed := s.now().Sub(start)
	s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
	s.captures.Add(1)
	s.last.Store(start.UnixNano())
	seq := s.sequence.Add(1)
	if s.logger != nil {
		b := img.Bounds()
		s.logger.Debug("snapshot captured", "path", path, "width", b.Dx(), "height", b.Dy(), "elapsed", elapsed)
	}
	return Snapshot{Image: img, Path: path, CapturedAt: start, Sequence: seq}, nil
}

// Stats returns capture counters.
func (s *Service) Stats() Stats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	var last time.Time
	if ns := s.last.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Captures:    captures,
		Failures:    s.failures.Load(),
		AvgCapture:  avg,
		LastCapture: last,
		Sequence:    s.sequence.Load(),
	}
}
