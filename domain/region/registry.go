package region

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownMask is returned when a registry lookup names no mask.
var ErrUnknownMask = errors.New("unknown mask")

// Built-in masks for a 319x695 device screen.
const (
	GemColumn       = "GEM_COLUMN"
	GemCurrency     = "GEM_CURRENCY"
	WaveCount       = "WAVE_COUNT"
	BattleEndScreen = "BATTLE_END_SCREEN"
)

// DefaultMasks returns the built-in mask set.
func DefaultMasks() []Mask {
	return []Mask{
		{Name: GemColumn, X: 0, Y: 0, Width: 90, Height: 695},
		{Name: GemCurrency, X: 25, Y: 52, Width: 50, Height: 25},
		{Name: WaveCount, X: 205, Y: 433, Width: 50, Height: 17},
		{Name: BattleEndScreen, X: 16, Y: 150, Width: 287, Height: 400},
	}
}

// Registry maps mask names to rectangles. It is populated once and read-only
// afterwards, so concurrent reads need no locking.
type Registry struct {
	masks map[string]Mask
}

// NewRegistry builds a registry from the given masks. Later entries replace
// earlier ones with the same name, which lets configuration override the
// defaults.
func NewRegistry(masks ...Mask) (*Registry, error) {
	r := &Registry{masks: make(map[string]Mask, len(masks))}
	for _, m := range masks {
		if m.Name == "" {
			return nil, errors.New("mask without a name")
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		r.masks[m.Name] = m
	}
	return r, nil
}

// Get returns the named mask.
func (r *Registry) Get(name string) (Mask, error) {
	m, ok := r.masks[name]
	if !ok {
		return Mask{}, fmt.Errorf("%w: %q", ErrUnknownMask, name)
	}
	return m, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.masks))
	for n := range r.masks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
