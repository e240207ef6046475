package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
	"github.com/mind-engage/mindengage-ocr/internal/storage"
)

const DefaultTimeout = 30 * time.Second

// Tesseract runs the tesseract CLI once per call in its own scratch
// directory. It holds no mutable state.
type Tesseract struct {
	Lang       string
	Timeout    time.Duration
	ScratchDir string // parent of per-call workspaces; "" = os.TempDir()
}

func NewTesseract() *Tesseract {
	return &Tesseract{Lang: "eng", Timeout: DefaultTimeout}
}

// Recognize returns the engine's stdout byte for byte.
func (t *Tesseract) Recognize(ctx context.Context, path string, img image.Image) (string, error) {
	const op = "ocr.Tesseract"
	if path == "" {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, errors.New("no engine path"))
	}
	if img == nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, errors.New("nil image"))
	}

	data, err := imagecodec.EncodePNG(img)
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, err)
	}

	ws, err := t.workspace()
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, fmt.Errorf("workspace: %w", err))
	}
	defer ws.Close()

	in, err := ws.Put("input.png", bytes.NewReader(data))
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, fmt.Errorf("write input: %w", err))
	}

	text, err := t.exec(ctx, path, in, ws.Dir())
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, op, err)
	}
	return text, nil
}

func (t *Tesseract) workspace() (storage.Workspace, error) {
	return storage.NewScratch(t.ScratchDir, "ocr-")
}

func (t *Tesseract) exec(ctx context.Context, bin, inPath, dir string) (string, error) {
	args := []string{inPath, "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("tesseract: %w after %s", ctxErr, timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("tesseract: %w", err)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, msg)
	}
	return out.String(), nil
}
