package capture

import (
	"image"
	"time"
)

// Snapshot carries one captured screen and its metadata.
type Snapshot struct {
	Image      image.Image
	Path       string
	CapturedAt time.Time
	Sequence   uint64
}

// Stats summarises capture behaviour for instrumentation.
type Stats struct {
	Captures    uint64
	Failures    uint64
	AvgCapture  time.Duration
	LastCapture time.Time
	Sequence    uint64
}
