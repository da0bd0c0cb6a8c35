package region

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrMaskOutOfRange is returned when a mask does not fit inside the screen it
// is applied to. Masks are never clamped.
var ErrMaskOutOfRange = errors.New("mask out of range")

// Point is an absolute screen coordinate.
type Point struct {
	X, Y int
}

// Mask is a named rectangle in absolute screen coordinates.
type Mask struct {
	Name   string `json:"name" toml:"name" yaml:"name"`
	X      int    `json:"x" toml:"x" yaml:"x"`
	Y      int    `json:"y" toml:"y" yaml:"y"`
	Width  int    `json:"width" toml:"width" yaml:"width"`
	Height int    `json:"height" toml:"height" yaml:"height"`
}

func (m Mask) String() string { return m.Name }

// Rect returns the mask as an image.Rectangle in screen space.
func (m Mask) Rect() image.Rectangle {
	return image.Rect(m.X, m.Y, m.X+m.Width, m.Y+m.Height)
}

// Validate reports whether the mask describes a usable rectangle.
func (m Mask) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("mask %q: size %dx%d must be positive", m.Name, m.Width, m.Height)
	}
	if m.X < 0 || m.Y < 0 {
		return fmt.Errorf("mask %q: origin (%d,%d) must not be negative", m.Name, m.X, m.Y)
	}
	return nil
}

// Crop copies the masked rectangle of screen into a new RGBA image whose
// bounds start at (0,0). The mask must lie inside the screen bounds.
func (m Mask) Crop(screen image.Image) (*image.RGBA, error) {
	if screen == nil {
		return nil, errors.New("nil screen")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b := screen.Bounds()
	r := m.Rect().Add(b.Min)
	if !r.In(b) {
		return nil, fmt.Errorf("%w: %s %v exceeds screen %dx%d", ErrMaskOutOfRange, m.Name, m.Rect(), b.Dx(), b.Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	draw.Draw(out, out.Bounds(), screen, r.Min, draw.Src)
	return out, nil
}

// ToPoint maps a mask-local coordinate back to absolute screen space.
func (m Mask) ToPoint(x, y int) Point {
	return Point{X: m.X + x, Y: m.Y + y}
}
