// Package ocr submits decoded images to an OCR engine.
package ocr

import (
	"context"
	"image"
)

// Recognizer turns an image into text. path is the verified engine
// executable; backends that do not exec a binary ignore it. Implementations
// must be safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, path string, img image.Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, path string, img image.Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, path string, img image.Image) (string, error) {
	return f(ctx, path, img)
}
