package bridge

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

const jpegQuality = 85

// RenderJPEG rasterizes page n (1-based) at the given DPI. The renderer is opened on
// first use, so documents without corrupted tables never load it.
func (d *Document) RenderJPEG(n int, dpi float64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.render == nil {
		doc, err := fitz.New(d.path)
		if err != nil {
			return nil, fmt.Errorf("open renderer: %w", err)
		}
		d.render = doc
	}
	if n < 1 || n > d.render.NumPage() {
		return nil, fmt.Errorf("render page %d out of range 1..%d", n, d.render.NumPage())
	}

	img, err := d.render.ImageDPI(n-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", n, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", n, err)
	}
	Logger.Debug("rendered page", "page", n, "dpi", dpi, "bytes", buf.Len())
	return buf.Bytes(), nil
}
