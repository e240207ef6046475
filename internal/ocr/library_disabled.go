//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

const LibraryCompiled = false

var errLibraryNotCompiled = errors.New("ocr: library backend requires building with -tags gosseract")

type Library struct {
	Lang    string
	Timeout time.Duration
}

func NewLibrary(string) (*Library, error) {
	return nil, errLibraryNotCompiled
}

func LibraryVersion() string { return "" }

func (l *Library) Recognize(context.Context, string, image.Image) (string, error) {
	return "", ocrerr.E(ocrerr.RecognitionFailed, "ocr.Library", errLibraryNotCompiled)
}
