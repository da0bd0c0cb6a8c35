package vision

import (
	"image"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// grayPrecomp stores per-pixel intensities of the searched bitmap and their
// summed-area tables (integral images). The integrals allow O(1) window sum
// and variance queries.
type grayPrecomp struct {
	gray       []float64 // per pixel intensity (length W*H)
	integral   []float64 // summed-area table of intensity
	integralSq []float64 // summed-area table of intensity squared
	W, H       int
}

// templatePrecomp caches template intensities and summary statistics.
type templatePrecomp struct {
	gray  []float64
	W, H  int
	meanT float64
	stdT  float64
}

const templateCacheSize = 64

// NCCOptions configures normalized cross-correlation matching.
//
// A Stride above 1 only guarantees the maximum and the first-in-raster tie
// rule inside the refine window around the coarse best; offsets between grid
// points elsewhere are never scored.
type NCCOptions struct {
	Threshold float64 // minimum score for a positive match (default 0.80)
	Stride    int     // coarse stride for scanning (default 1, every offset)
	Refine    bool    // if true and Stride>1, rescan every offset around the coarse best
}

// NCCMatcher scores every candidate offset by normalized cross-correlation
// and keeps the global maximum.
type NCCMatcher struct {
	opts  NCCOptions
	cache *lru.Cache[*Template, *templatePrecomp]
}

// NewNCCMatcher returns a matcher with defaults applied to zero options.
func NewNCCMatcher(opts NCCOptions) *NCCMatcher {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	cache, _ := lru.New[*Template, *templatePrecomp](templateCacheSize)
	return &NCCMatcher{opts: opts, cache: cache}
}

// WithThreshold returns a matcher gating on t that shares the template cache.
func (m *NCCMatcher) WithThreshold(t float64) Matcher {
	if t <= 0 || t == m.opts.Threshold {
		return m
	}
	cp := *m
	cp.opts.Threshold = t
	return &cp
}

// Threshold reports the confidence gate.
func (m *NCCMatcher) Threshold() float64 { return m.opts.Threshold }

// Match scans input for tmpl. Ties keep the first offset met in row-major
// order. The match is found when the best score is >= the threshold.
func (m *NCCMatcher) Match(input *image.Gray, tmpl *Template) (Result, error) {
	if err := checkFits(input, tmpl); err != nil {
		return Result{Score: -1}, err
	}
	start := time.Now()
	pc := m.precomp(tmpl)
	pre := buildGrayPrecomp(input)
	res := matchNCC(pre, pc, m.opts)
	res.Dur = time.Since(start)
	return res, nil
}

func (m *NCCMatcher) precomp(tmpl *Template) *templatePrecomp {
	if pc, ok := m.cache.Get(tmpl); ok {
		return pc
	}
	pc := newTemplatePrecomp(tmpl.Image)
	m.cache.Add(tmpl, pc)
	return pc
}

func newTemplatePrecomp(img *image.Gray) *templatePrecomp {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([]float64, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
			gray[y*w+x] = v
			sumT += v
			sumT2 += v * v
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	stdT := 0.0
	if varT > 0 {
		stdT = math.Sqrt(varT)
	}
	return &templatePrecomp{gray: gray, W: w, H: h, meanT: meanT, stdT: stdT}
}

// buildGrayPrecomp copies intensities and computes their summed-area tables.
func buildGrayPrecomp(img *image.Gray) *grayPrecomp {
	b := img.Bounds()
	W, H := b.Dx(), b.Dy()
	need := W * H
	p := &grayPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			v := float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
			off := y*W + x
			p.gray[off] = v
			rowSum += v
			rowSum2 += v * v
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// integralSum returns the inclusive sum over rectangle [x0..x1] x [y0..y1]
// from an integral image stored in row-major order with width W.
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}

// scoreAt returns the NCC score of the window at (x, y); ok is false when the
// window has no variance and the score is undefined.
func scoreAt(pre *grayPrecomp, pc *templatePrecomp, x, y int) (float64, bool) {
	w, h := pc.W, pc.H
	n := float64(w * h)
	sumF := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= 1e-9 {
		return 0, false
	}
	stdF := math.Sqrt(varF)
	var sumFT float64
	for py := 0; py < h; py++ {
		row := pre.gray[(y+py)*pre.W+x : (y+py)*pre.W+x+w]
		trow := pc.gray[py*w : py*w+w]
		for px := range trow {
			sumFT += row[px] * trow[px]
		}
	}
	numer := sumFT - n*meanF*pc.meanT
	denom := n * stdF * pc.stdT
	if denom <= 0 {
		return 0, false
	}
	return numer / denom, true
}

func matchNCC(pre *grayPrecomp, pc *templatePrecomp, opts NCCOptions) Result {
	res := Result{Score: -1}
	W, H := pre.W, pre.H
	w, h := pc.W, pc.H

	// A uniform template has no variance; fall back to an exact comparison.
	if pc.stdT <= 1e-9 {
		ref := pc.gray[0]
		for y := 0; y <= H-h; y++ {
			for x := 0; x <= W-w; x++ {
				if windowEquals(pre, x, y, w, h, ref) {
					res.X, res.Y, res.Score, res.Found = x, y, 1, true
					return res
				}
			}
		}
		return res
	}

	stride := opts.Stride
	if stride <= 0 {
		stride = 1
	}
	bestX, bestY, bestScore := 0, 0, -1.0
	for y := 0; y <= H-h; y += stride {
		for x := 0; x <= W-w; x += stride {
			if score, ok := scoreAt(pre, pc, x, y); ok && score > bestScore {
				bestScore, bestX, bestY = score, x, y
			}
		}
	}
	if opts.Refine && stride > 1 {
		minY := max(0, bestY-stride)
		maxY := min(H-h, bestY+stride)
		minX := max(0, bestX-stride)
		maxX := min(W-w, bestX+stride)
		// Rescan the window from scratch so an equal score earlier in
		// raster order replaces the coarse hit.
		bestScore = -1
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				if score, ok := scoreAt(pre, pc, x, y); ok && score > bestScore {
					bestScore, bestX, bestY = score, x, y
				}
			}
		}
	}
	res.X, res.Y, res.Score = bestX, bestY, bestScore
	res.Found = bestScore >= opts.Threshold
	return res
}

func windowEquals(pre *grayPrecomp, x, y, w, h int, ref float64) bool {
	for py := 0; py < h; py++ {
		row := pre.gray[(y+py)*pre.W+x : (y+py)*pre.W+x+w]
		for _, v := range row {
			if math.Abs(v-ref) > 1e-9 {
				return false
			}
		}
	}
	return true
}
