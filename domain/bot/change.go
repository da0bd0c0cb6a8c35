package bot

import (
	"image"

	"github.com/corona10/goimagehash"
)

// unchangedDistance is the perceptual hash distance at or below which two
// screens count as the same.
const unchangedDistance = 2

// ChangeTracker counts consecutive cycles whose screen did not change.
type ChangeTracker struct {
	last      *goimagehash.ImageHash
	unchanged int
}

// Observe hashes img and returns the distance to the previous screen and
// how many cycles in a row the screen stayed the same.
func (c *ChangeTracker) Observe(img image.Image) (int, int, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, c.unchanged, err
	}
	prev := c.last
	c.last = hash
	if prev == nil {
		return 0, 0, nil
	}
	dist, err := prev.Distance(hash)
	if err != nil {
		return 0, c.unchanged, err
	}
	if dist <= unchangedDistance {
		c.unchanged++
	} else {
		c.unchanged = 0
	}
	return dist, c.unchanged, nil
}
