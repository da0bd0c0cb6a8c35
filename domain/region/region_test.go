package region

import (
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"
)

// gradientScreen encodes each pixel's coordinate into its color so crops can
// be checked against the source position.
func gradientScreen(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestMaskCrop_SizeAndCoordinates(t *testing.T) {
	screen := gradientScreen(120, 90)
	cases := []Mask{
		{Name: "full", X: 0, Y: 0, Width: 120, Height: 90},
		{Name: "inner", X: 17, Y: 33, Width: 40, Height: 21},
		{Name: "corner", X: 119, Y: 89, Width: 1, Height: 1},
		{Name: "edge", X: 100, Y: 0, Width: 20, Height: 90},
	}
	for _, m := range cases {
		out, err := m.Crop(screen)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", m.Name, err)
		}
		if out.Bounds().Dx() != m.Width || out.Bounds().Dy() != m.Height {
			t.Fatalf("%s: expected %dx%d got %v", m.Name, m.Width, m.Height, out.Bounds())
		}
		for _, lp := range []image.Point{{0, 0}, {m.Width - 1, m.Height - 1}, {m.Width / 2, m.Height / 2}} {
			abs := m.ToPoint(lp.X, lp.Y)
			if got, want := out.RGBAAt(lp.X, lp.Y), screen.RGBAAt(abs.X, abs.Y); got != want {
				t.Fatalf("%s: local %v maps to %v but colors differ: %v vs %v", m.Name, lp, abs, got, want)
			}
		}
	}
}

func TestMaskCrop_OutOfRange(t *testing.T) {
	screen := gradientScreen(50, 50)
	cases := []Mask{
		{Name: "wide", X: 10, Y: 0, Width: 41, Height: 10},
		{Name: "tall", X: 0, Y: 45, Width: 5, Height: 6},
		{Name: "outside", X: 60, Y: 60, Width: 1, Height: 1},
	}
	for _, m := range cases {
		if _, err := m.Crop(screen); !errors.Is(err, ErrMaskOutOfRange) {
			t.Fatalf("%s: expected ErrMaskOutOfRange, got %v", m.Name, err)
		}
	}
}

func TestMaskValidate(t *testing.T) {
	if err := (Mask{Name: "zero", Width: 0, Height: 5}).Validate(); err == nil {
		t.Fatalf("zero width accepted")
	}
	if err := (Mask{Name: "neg", X: -1, Width: 5, Height: 5}).Validate(); err == nil {
		t.Fatalf("negative origin accepted")
	}
	if err := (Mask{Name: "ok", Width: 1, Height: 1}).Validate(); err != nil {
		t.Fatalf("valid mask rejected: %v", err)
	}
}

func TestMaskToPoint(t *testing.T) {
	m := Mask{Name: BattleEndScreen, X: 16, Y: 150, Width: 287, Height: 400}
	if p := m.ToPoint(3, 4); p != (Point{X: 19, Y: 154}) {
		t.Fatalf("unexpected point %v", p)
	}
}

func TestSurfaceRandomPoint_Degenerate(t *testing.T) {
	s := NewSurface(Point{10, 10}, Point{10, 10})
	for i := 0; i < 100; i++ {
		if p := s.RandomPoint(nil); p != (Point{10, 10}) {
			t.Fatalf("expected (10,10) got %v", p)
		}
	}
}

func TestSurfaceRandomPoint_CoversBounds(t *testing.T) {
	s := NewSurface(Point{5, 7}, Point{7, 8})
	r := rand.New(rand.NewPCG(1, 2))
	seen := map[Point]bool{}
	for i := 0; i < 500; i++ {
		p := s.RandomPoint(r)
		if !s.Contains(p) {
			t.Fatalf("point %v outside %v", p, s)
		}
		seen[p] = true
	}
	if len(seen) != s.Width()*s.Height() {
		t.Fatalf("expected all %d interior points to be sampled, saw %d", s.Width()*s.Height(), len(seen))
	}
}

func TestNewSurface_OrdersCorners(t *testing.T) {
	s := NewSurface(Point{20, 3}, Point{4, 9})
	if s.TopLeft != (Point{4, 3}) || s.BottomRight != (Point{20, 9}) {
		t.Fatalf("corners not ordered: %+v", s)
	}
}

func TestRegistry_DefaultsAndOverride(t *testing.T) {
	masks := append(DefaultMasks(), Mask{Name: GemColumn, X: 1, Y: 2, Width: 3, Height: 4})
	r, err := NewRegistry(masks...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	m, err := r.Get(GemColumn)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.X != 1 || m.Width != 3 {
		t.Fatalf("override not applied: %+v", m)
	}
	if _, err := r.Get("NOPE"); !errors.Is(err, ErrUnknownMask) {
		t.Fatalf("expected ErrUnknownMask, got %v", err)
	}
	if names := r.Names(); len(names) != 4 || names[0] != BattleEndScreen {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	if _, err := NewRegistry(Mask{Name: "bad", Width: -1, Height: 1}); err == nil {
		t.Fatalf("expected error for invalid mask")
	}
	if _, err := NewRegistry(Mask{Width: 1, Height: 1}); err == nil {
		t.Fatalf("expected error for unnamed mask")
	}
}
