package region

import "math/rand/v2"

// Surface is the inclusive absolute bounding box of a matched template.
type Surface struct {
	TopLeft     Point
	BottomRight Point
}

// NewSurface builds a Surface from two corners, ordering them so that
// TopLeft is never right of or below BottomRight.
func NewSurface(a, b Point) Surface {
	s := Surface{TopLeft: a, BottomRight: b}
	if s.TopLeft.X > s.BottomRight.X {
		s.TopLeft.X, s.BottomRight.X = s.BottomRight.X, s.TopLeft.X
	}
	if s.TopLeft.Y > s.BottomRight.Y {
		s.TopLeft.Y, s.BottomRight.Y = s.BottomRight.Y, s.TopLeft.Y
	}
	return s
}

// Width is the number of pixel columns covered by the surface.
func (s Surface) Width() int { return s.BottomRight.X - s.TopLeft.X + 1 }

// Height is the number of pixel rows covered by the surface.
func (s Surface) Height() int { return s.BottomRight.Y - s.TopLeft.Y + 1 }

// Contains reports whether p lies inside the surface, bounds included.
func (s Surface) Contains(p Point) bool {
	return p.X >= s.TopLeft.X && p.X <= s.BottomRight.X &&
		p.Y >= s.TopLeft.Y && p.Y <= s.BottomRight.Y
}

// RandomPoint samples each axis independently and uniformly, both bounds
// inclusive. A nil r uses the package-level generator.
func (s Surface) RandomPoint(r *rand.Rand) Point {
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	return Point{
		X: s.TopLeft.X + intN(s.Width()),
		Y: s.TopLeft.Y + intN(s.Height()),
	}
}
