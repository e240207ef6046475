// Package imagecodec turns uploaded bytes into an in-memory raster. It never
// performs recognition.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	// registered decoders
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

// DefaultMaxPixels bounds width*height before the full decode allocates.
const DefaultMaxPixels = 50_000_000

// Decoded is a valid, non-empty raster plus the codec that produced it.
type Decoded struct {
	Image  image.Image
	Format string
}

type Decoder struct {
	MaxPixels int64
}

func NewDecoder(maxPixels int64) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{MaxPixels: maxPixels}
}

// Decode parses data as PNG, JPEG, GIF, BMP, TIFF or WEBP. Every failure is
// classified as ocrerr.InvalidImage and returns a zero Decoded.
func (d *Decoder) Decode(data []byte) (Decoded, error) {
	const op = "imagecodec.Decode"
	if len(data) == 0 {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, errors.New("empty input"))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, fmt.Errorf("empty dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if max := d.maxPixels(); int64(cfg.Width)*int64(cfg.Height) > max {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, fmt.Errorf("%dx%d exceeds %d pixels", cfg.Width, cfg.Height, max))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, err)
	}
	if img == nil || img.Bounds().Empty() || img.ColorModel() == nil {
		return Decoded{}, ocrerr.E(ocrerr.InvalidImage, op, errors.New("decoded image has no pixels"))
	}
	return Decoded{Image: img, Format: format}, nil
}

func (d *Decoder) maxPixels() int64 {
	if d == nil || d.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return d.MaxPixels
}

// EncodePNG re-encodes img losslessly for engines that read files.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
