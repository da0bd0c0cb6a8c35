package vision

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrTemplateTooLarge means the template cannot fit inside the searched
// region. It points at a configuration mistake and is never reported as a
// plain miss.
var ErrTemplateTooLarge = errors.New("template larger than search region")

// Strategy names accepted by NewMatcher.
const (
	StrategyNCC     = "ncc"
	StrategyNearest = "nearest"
)

// DefaultThreshold is the confidence gate used when none is configured.
const DefaultThreshold = 0.80

// Result is the outcome of one matching call. X and Y are relative to the
// searched bitmap and always carry the best candidate; Found reports whether
// its score passed the threshold.
type Result struct {
	X, Y  int
	Score float64
	Found bool
	Dur   time.Duration
}

// Matcher locates a template inside a preprocessed bitmap.
type Matcher interface {
	Match(input *image.Gray, tmpl *Template) (Result, error)
	// WithThreshold returns a matcher sharing this one's state but gating on t.
	WithThreshold(t float64) Matcher
}

// MatcherOptions selects and configures a strategy.
type MatcherOptions struct {
	Strategy  string
	Threshold float64
	Stride    int  // ncc only
	Refine    bool // ncc only
	K         int  // nearest only
}

// NewMatcher builds the configured strategy.
func NewMatcher(opts MatcherOptions) (Matcher, error) {
	switch opts.Strategy {
	case "", StrategyNCC:
		return NewNCCMatcher(NCCOptions{Threshold: opts.Threshold, Stride: opts.Stride, Refine: opts.Refine}), nil
	case StrategyNearest:
		return NewNearestMatcher(opts.K, opts.Threshold), nil
	default:
		return nil, fmt.Errorf("unknown matcher strategy %q", opts.Strategy)
	}
}

func checkFits(input *image.Gray, tmpl *Template) error {
	if input == nil || tmpl == nil || tmpl.Image == nil {
		return errors.New("nil input or template")
	}
	if tmpl.Width <= 0 || tmpl.Height <= 0 {
		return fmt.Errorf("template %q has empty size", tmpl.Name)
	}
	b := input.Bounds()
	if tmpl.Width > b.Dx() || tmpl.Height > b.Dy() {
		return fmt.Errorf("%w: %q is %dx%d, region is %dx%d", ErrTemplateTooLarge, tmpl.Name, tmpl.Width, tmpl.Height, b.Dx(), b.Dy())
	}
	return nil
}
