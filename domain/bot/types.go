package bot

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/soocke/gem-bot-go/domain/capture"
	"github.com/soocke/gem-bot-go/domain/region"
	"github.com/soocke/gem-bot-go/domain/vision"
)

// ErrCapture wraps failures to obtain a screen. The loop stops on it rather
// than act on a stale screen.
var ErrCapture = errors.New("capture failed")

// State enumerates the phases of one polling cycle.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateMatching
	StateActing
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateMatching:
		return "matching"
	case StateActing:
		return "acting"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// StateListener is called on each state transition.
type StateListener func(prev, next State)

// SnapshotSource provides one fresh screen per call.
type SnapshotSource interface {
	Take(ctx context.Context) (capture.Snapshot, error)
}

// Device performs blocking input primitives.
type Device interface {
	Tap(ctx context.Context, p region.Point) error
	Sleep(ctx context.Context, d time.Duration) error
}

// TemplateSource serves preloaded templates.
type TemplateSource interface {
	Get(name string) (*vision.Template, error)
}

// TextReader extracts text from a masked bitmap.
type TextReader interface {
	ReadText(img image.Image) (string, error)
}

// Rule pairs a template and a region with the action to take when the
// template is found there. Rules are evaluated in slice order.
type Rule struct {
	Name      string
	Template  string
	Region    string
	Threshold float64       // overrides the matcher's gate when > 0
	Taps      int           // taps at random points inside the match
	TapPause  time.Duration // pause between consecutive taps
	Wait      time.Duration // backoff after the rule fires; idle wait when 0
}

// Decision is what one cycle did and how long to wait before the next.
type Decision struct {
	CycleID string
	Rule    string
	Matched bool
	Surface region.Surface
	Score   float64
	Taps    []region.Point
	Wait    time.Duration
}

// Cycle is the per-iteration context threaded through capture, match and
// act. A fresh one is built for every cycle.
type Cycle struct {
	ID       string
	Started  time.Time
	Snapshot capture.Snapshot
	inputs   map[string]*image.Gray // preprocessed crops keyed by mask name
}
