package bot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/gem-bot-go/domain/region"
	"github.com/soocke/gem-bot-go/domain/vision"
)

// Deps are the collaborators of a Loop. Reader is optional.
type Deps struct {
	Source    SnapshotSource
	Device    Device
	Masks     *region.Registry
	Templates TemplateSource
	Matcher   vision.Matcher
	Reader    TextReader
	Logger    *slog.Logger
}

// Options configure the decision policy.
type Options struct {
	Rules     []Rule
	IdleWait  time.Duration
	Threshold vision.ThresholdOptions
	// Readouts lists mask names whose text is read after each cycle.
	Readouts []string
	// Rand drives tap point sampling; nil uses the global generator.
	Rand *rand.Rand
}

// Loop runs capture, match, act and wait cycles one after another on the
// calling goroutine. It is not safe for concurrent use.
type Loop struct {
	deps      Deps
	opts      Options
	logger    *slog.Logger
	state     State
	listeners []StateListener
	session   *Session
	tracker   *ChangeTracker
}

// NewLoop validates that every rule names a known mask and a loaded
// template.
func NewLoop(deps Deps, opts Options) (*Loop, error) {
	if deps.Source == nil || deps.Device == nil || deps.Masks == nil || deps.Templates == nil || deps.Matcher == nil {
		return nil, errors.New("bot: missing dependency")
	}
	if len(opts.Rules) == 0 {
		return nil, errors.New("bot: no rules configured")
	}
	for _, r := range opts.Rules {
		if _, err := deps.Masks.Get(r.Region); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		if _, err := deps.Templates.Get(r.Template); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	for _, name := range opts.Readouts {
		if _, err := deps.Masks.Get(name); err != nil {
			return nil, fmt.Errorf("readout: %w", err)
		}
	}
	return &Loop{
		deps:    deps,
		opts:    opts,
		logger:  deps.Logger,
		state:   StateIdle,
		session: NewSession(),
		tracker: &ChangeTracker{},
	}, nil
}

// AddListener registers l for state transitions.
func (l *Loop) AddListener(fn StateListener) { l.listeners = append(l.listeners, fn) }

// Current returns the current state.
func (l *Loop) Current() State { return l.state }

// Session returns the accumulated cycle statistics.
func (l *Loop) Session() *Session { return l.session }

// Run repeats cycles until an error occurs or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		dec, err := l.RunCycle(ctx)
		if err != nil {
			return err
		}
		if err := l.Wait(ctx, dec); err != nil {
			return err
		}
	}
}

// RunCycle captures one screen, fires the first rule whose template is found
// and returns the decision. Lower-priority rules are not evaluated once a
// rule matched.
func (l *Loop) RunCycle(ctx context.Context) (Decision, error) {
	cyc := &Cycle{ID: uuid.NewString(), Started: time.Now(), inputs: map[string]*image.Gray{}}
	dec := Decision{CycleID: cyc.ID, Wait: l.opts.IdleWait}

	l.transition(StateCapturing)
	snap, err := l.deps.Source.Take(ctx)
	if err != nil {
		l.transition(StateIdle)
		return dec, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	cyc.Snapshot = snap

	l.transition(StateMatching)
	for _, rule := range l.opts.Rules {
		surface, res, ok, err := l.locate(cyc, rule)
		if err != nil {
			l.transition(StateIdle)
			return dec, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		if !ok {
			continue
		}
		dec.Rule, dec.Matched, dec.Surface, dec.Score = rule.Name, true, surface, res.Score
		if rule.Wait > 0 {
			dec.Wait = rule.Wait
		}
		l.transition(StateActing)
		taps, err := l.act(ctx, rule, surface)
		dec.Taps = taps
		if err != nil {
			l.transition(StateIdle)
			return dec, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		if l.logger != nil {
			l.logger.Info("rule fired", "cycle", cyc.ID, "rule", rule.Name, "score", res.Score, "taps", len(taps), "wait", dec.Wait)
		}
		break
	}

	l.observe(cyc)
	l.session.OnCycle(dec, time.Since(cyc.Started))
	if l.logger != nil {
		l.logger.Debug("cycle complete", "cycle", cyc.ID, "matched", dec.Matched, "rule", dec.Rule, "wait", dec.Wait, "elapsed", time.Since(cyc.Started))
	}
	return dec, nil
}

// Wait blocks for the decision's backoff.
func (l *Loop) Wait(ctx context.Context, dec Decision) error {
	l.transition(StateWaiting)
	err := l.deps.Device.Sleep(ctx, dec.Wait)
	l.transition(StateIdle)
	return err
}

// locate reports the absolute surface of rule's template inside its mask.
// ok is false when the match is below the gate.
func (l *Loop) locate(cyc *Cycle, rule Rule) (region.Surface, vision.Result, bool, error) {
	mask, err := l.deps.Masks.Get(rule.Region)
	if err != nil {
		return region.Surface{}, vision.Result{}, false, err
	}
	tmpl, err := l.deps.Templates.Get(rule.Template)
	if err != nil {
		return region.Surface{}, vision.Result{}, false, err
	}
	input, err := l.input(cyc, mask)
	if err != nil {
		return region.Surface{}, vision.Result{}, false, err
	}
	m := l.deps.Matcher
	if rule.Threshold > 0 {
		m = m.WithThreshold(rule.Threshold)
	}
	res, err := m.Match(input, tmpl)
	if err != nil {
		return region.Surface{}, res, false, err
	}
	if l.logger != nil {
		l.logger.Debug("match evaluated", "cycle", cyc.ID, "rule", rule.Name, "mask", mask.Name,
			"x", res.X, "y", res.Y, "score", res.Score, "found", res.Found, "dur", res.Dur)
	}
	if !res.Found {
		return region.Surface{}, res, false, nil
	}
	surface := region.NewSurface(
		mask.ToPoint(res.X, res.Y),
		mask.ToPoint(res.X+tmpl.Width-1, res.Y+tmpl.Height-1),
	)
	return surface, res, true, nil
}

// input crops and preprocesses a mask once per cycle.
func (l *Loop) input(cyc *Cycle, mask region.Mask) (*image.Gray, error) {
	if g, ok := cyc.inputs[mask.Name]; ok {
		return g, nil
	}
	crop, err := mask.Crop(cyc.Snapshot.Image)
	if err != nil {
		return nil, err
	}
	g := vision.Preprocess(crop, l.opts.Threshold)
	cyc.inputs[mask.Name] = g
	return g, nil
}

func (l *Loop) act(ctx context.Context, rule Rule, surface region.Surface) ([]region.Point, error) {
	taps := make([]region.Point, 0, rule.Taps)
	for i := 0; i < rule.Taps; i++ {
		if i > 0 && rule.TapPause > 0 {
			if err := l.deps.Device.Sleep(ctx, rule.TapPause); err != nil {
				return taps, err
			}
		}
		p := surface.RandomPoint(l.opts.Rand)
		if err := l.deps.Device.Tap(ctx, p); err != nil {
			return taps, fmt.Errorf("tap %v: %w", p, err)
		}
		taps = append(taps, p)
	}
	return taps, nil
}

// observe logs screen change and text readouts. Failures here never affect
// the decision.
func (l *Loop) observe(cyc *Cycle) {
	if l.logger == nil {
		return
	}
	if dist, still, err := l.tracker.Observe(cyc.Snapshot.Image); err != nil {
		l.logger.Debug("screen hash failed", "cycle", cyc.ID, "error", err)
	} else if still > 0 {
		l.logger.Info("screen unchanged", "cycle", cyc.ID, "cycles", still, "distance", dist)
	}
	if l.deps.Reader == nil {
		return
	}
	for _, name := range l.opts.Readouts {
		mask, err := l.deps.Masks.Get(name)
		if err != nil {
			continue
		}
		input, err := l.input(cyc, mask)
		if err != nil {
			l.logger.Warn("readout crop failed", "cycle", cyc.ID, "mask", name, "error", err)
			continue
		}
		text, err := l.deps.Reader.ReadText(input)
		if err != nil {
			l.logger.Warn("readout failed", "cycle", cyc.ID, "mask", name, "error", err)
			continue
		}
		l.logger.Info("readout", "cycle", cyc.ID, "mask", name, "text", text)
	}
}

func (l *Loop) transition(next State) {
	prev := l.state
	if prev == next {
		return
	}
	l.state = next
	if l.logger != nil {
		l.logger.Debug("loop state transition", "from", prev.String(), "to", next.String())
	}
	for _, fn := range l.listeners {
		fn(prev, next)
	}
}
