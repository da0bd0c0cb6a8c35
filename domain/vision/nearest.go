package vision

import (
	"image"
	"time"
)

// Candidate is one window ranked by the nearest-neighbor search. Distance is
// the mean absolute pixel difference scaled to [0,1].
type Candidate struct {
	X, Y     int
	Distance float64
	sum      int
}

// NearestMatcher ranks windows by pixel distance to the template. Its Match
// gates the closest window on 1-distance so both strategies share one
// threshold contract.
type NearestMatcher struct {
	K         int
	Threshold float64
}

// NewNearestMatcher returns a matcher keeping k candidates (at least one).
func NewNearestMatcher(k int, threshold float64) *NearestMatcher {
	if k <= 0 {
		k = 1
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &NearestMatcher{K: k, Threshold: threshold}
}

// WithThreshold returns a copy gating on t.
func (m *NearestMatcher) WithThreshold(t float64) Matcher {
	if t <= 0 || t == m.Threshold {
		return m
	}
	cp := *m
	cp.Threshold = t
	return &cp
}

// Match returns the closest window. Score is 1-distance and the match is
// found when Score >= Threshold.
func (m *NearestMatcher) Match(input *image.Gray, tmpl *Template) (Result, error) {
	start := time.Now()
	cands, err := m.Nearest(input, tmpl, m.K)
	if err != nil {
		return Result{Score: -1}, err
	}
	res := Result{Score: -1}
	if len(cands) > 0 {
		top := cands[0]
		res.X, res.Y = top.X, top.Y
		res.Score = 1 - top.Distance
		res.Found = res.Score >= m.Threshold
	}
	res.Dur = time.Since(start)
	return res, nil
}

// Nearest returns up to k windows in ascending distance. Equal distances keep
// row-major scan order.
func (m *NearestMatcher) Nearest(input *image.Gray, tmpl *Template, k int) ([]Candidate, error) {
	if err := checkFits(input, tmpl); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 1
	}
	ib := input.Bounds()
	tb := tmpl.Image.Bounds()
	W, H := ib.Dx(), ib.Dy()
	w, h := tmpl.Width, tmpl.Height
	norm := float64(w*h) * 255

	best := make([]Candidate, 0, k)
	for y := 0; y <= H-h; y++ {
		for x := 0; x <= W-w; x++ {
			// Abandon a window once it cannot enter the ranking.
			limit := -1
			if len(best) == k {
				limit = best[k-1].sum
			}
			sum, ok := windowDistance(input, tmpl.Image, ib.Min.X+x, ib.Min.Y+y, tb.Min, w, h, limit)
			if !ok {
				continue
			}
			best = insertCandidate(best, Candidate{X: x, Y: y, Distance: float64(sum) / norm, sum: sum}, k)
		}
	}
	return best, nil
}

// windowDistance sums absolute differences; ok is false when the running
// sum reaches limit (limit < 0 disables the cut-off).
func windowDistance(input, tmpl *image.Gray, ox, oy int, tmin image.Point, w, h, limit int) (int, bool) {
	sum := 0
	for py := 0; py < h; py++ {
		irow := input.Pix[input.PixOffset(ox, oy+py):]
		trow := tmpl.Pix[tmpl.PixOffset(tmin.X, tmin.Y+py):]
		for px := 0; px < w; px++ {
			d := int(irow[px]) - int(trow[px])
			if d < 0 {
				d = -d
			}
			sum += d
		}
		if limit >= 0 && sum >= limit {
			return sum, false
		}
	}
	return sum, true
}

func insertCandidate(list []Candidate, c Candidate, k int) []Candidate {
	i := len(list)
	for i > 0 && list[i-1].Distance > c.Distance {
		i--
	}
	if i >= k {
		return list
	}
	if len(list) < k {
		list = append(list, Candidate{})
	}
	copy(list[i+1:], list[i:len(list)-1])
	list[i] = c
	return list
}
