//go:build gosseract

package ocr

import (
	"context"
	"image"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

const LibraryCompiled = true

// Library recognizes in-process through libtesseract. It creates one client
// per call because gosseract clients are not safe to share. A call that
// exceeds Timeout is abandoned; its client is closed when the engine returns.
type Library struct {
	Lang    string
	Timeout time.Duration
}

func NewLibrary(lang string) (*Library, error) {
	return &Library{Lang: lang, Timeout: DefaultTimeout}, nil
}

// LibraryVersion reports the linked libtesseract version.
func LibraryVersion() string { return gosseract.Version() }

func (l *Library) Recognize(ctx context.Context, _ string, img image.Image) (string, error) {
	const op = "ocr.Library"
	if err := ctx.Err(); err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, err)
	}
	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, err)
	}

	text, err := runBounded(ctx, l.Timeout, func() (string, error) {
		c := gosseract.NewClient()
		defer c.Close()
		if l.Lang != "" {
			if err := c.SetLanguage(l.Lang); err != nil {
				return "", err
			}
		}
		if err := c.SetImageFromBytes(data); err != nil {
			return "", err
		}
		return c.Text()
	})
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, err)
	}
	return text, nil
}
