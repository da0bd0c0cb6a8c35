package bot

import "time"

// Session tracks cycle counts and fired rules for the lifetime of a Loop.
// The zero value is not ready; use NewSession.
type Session struct {
	cycles   uint64
	matched  uint64
	fired    map[string]uint64
	busy     time.Duration
	waiting  time.Duration
	last     Decision
	hasValue bool
}

// NewSession returns an empty session.
func NewSession() *Session { return &Session{fired: map[string]uint64{}} }

// OnCycle records a finished cycle and the time it took.
func (s *Session) OnCycle(dec Decision, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.cycles++
	if dec.Matched {
		s.matched++
		s.fired[dec.Rule]++
	}
	s.busy += elapsed
	s.waiting += dec.Wait
	s.last = dec
	s.hasValue = true
}

// Values returns the cycle count, the number of cycles with a match and the
// total planned wait.
func (s *Session) Values() (cycles, matched uint64, waiting time.Duration) {
	if s == nil {
		return 0, 0, 0
	}
	return s.cycles, s.matched, s.waiting
}

// AvgCycle returns the mean time spent capturing, matching and acting per
// cycle, excluding the backoff.
func (s *Session) AvgCycle() time.Duration {
	if s == nil || s.cycles == 0 {
		return 0
	}
	return s.busy / time.Duration(s.cycles)
}

// Fired returns how often the named rule fired.
func (s *Session) Fired(rule string) uint64 {
	if s == nil {
		return 0
	}
	return s.fired[rule]
}

// Last returns the most recent decision, if any.
func (s *Session) Last() (Decision, bool) {
	if s == nil {
		return Decision{}, false
	}
	return s.last, s.hasValue
}
