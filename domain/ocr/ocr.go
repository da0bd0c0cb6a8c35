// Package ocr reads short text readouts (currency, wave counter) from masked
// screen regions. Results feed logs only.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/nfnt/resize"
	"github.com/otiai10/gosseract/v2"
)

// DigitWhitelist restricts recognition to counter characters.
const DigitWhitelist = "0123456789.,/KMBkmb"

// Reader wraps a tesseract client. Not safe for concurrent use.
type Reader struct {
	client *gosseract.Client
	scale  uint
}

// NewReader returns a Reader for language lang; small crops are upscaled by
// scale before recognition.
func NewReader(lang, whitelist string, scale uint) (*Reader, error) {
	c := gosseract.NewClient()
	if lang != "" {
		if err := c.SetLanguage(lang); err != nil {
			c.Close()
			return nil, fmt.Errorf("ocr language %q: %w", lang, err)
		}
	}
	if whitelist != "" {
		if err := c.SetWhitelist(whitelist); err != nil {
			c.Close()
			return nil, fmt.Errorf("ocr whitelist: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		c.Close()
		return nil, fmt.Errorf("ocr page mode: %w", err)
	}
	if scale == 0 {
		scale = 1
	}
	return &Reader{client: c, scale: scale}, nil
}

// ReadText returns the trimmed text found in img.
func (r *Reader) ReadText(img image.Image) (string, error) {
	b := img.Bounds()
	if r.scale > 1 {
		img = resize.Resize(uint(b.Dx())*r.scale, 0, img, resize.Bilinear)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", err
	}
	text, err := r.client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Close releases the tesseract client.
func (r *Reader) Close() error {
	return r.client.Close()
}
