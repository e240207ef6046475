package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocr"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

// SelfTestSample is rendered into the self-test image.
const SelfTestSample = "OCR SELF TEST 123"

// Engine composes locating, verifying and self-testing the OCR engine.
type Engine struct {
	Locator    *Locator
	Recognizer ocr.Recognizer
	Decoder    *imagecodec.Decoder

	// InProcess skips Locate and Verify for backends linked into the binary.
	InProcess       bool
	InProcessVer    string
	VersionTimeout  time.Duration
	SelfTestTimeout time.Duration
	Now             func() time.Time
}

func New(loc *Locator, rec ocr.Recognizer) *Engine {
	return &Engine{
		Locator:         loc,
		Recognizer:      rec,
		Decoder:         imagecodec.NewDecoder(0),
		VersionTimeout:  10 * time.Second,
		SelfTestTimeout: 60 * time.Second,
		Now:             time.Now,
	}
}

// Initialize runs Locate, Verify and SelfTest, stopping at the first
// failure. It never returns an error: failure is recorded in the Status.
func (e *Engine) Initialize(ctx context.Context) Status {
	st := Status{CheckedAt: e.now()}

	var path, version string
	if e.InProcess {
		version = e.InProcessVer
		log.Printf("engine: using in-process backend (version %q)", version)
	} else {
		p, found := e.Locator.Locate()
		if !found {
			log.Printf("engine: tesseract not found (declared=%q, candidates=%v)", e.Locator.DeclaredPath, e.Locator.StaticCandidates())
			st.LastError = ocrerr.EngineUnavailable
			return st
		}
		path = p
		st.ExecutablePath = path
		log.Printf("engine: found tesseract at %s", path)

		v, err := e.Verify(ctx, path)
		if err != nil {
			log.Printf("engine: version check failed: %v", err)
			st.LastError = ocrerr.KindOf(err)
			return st
		}
		version = v
	}
	st.Version = version

	if _, err := e.SelfTest(ctx, path); err != nil {
		log.Printf("engine: self-test failed: %v", err)
		st.LastError = ocrerr.KindOf(err)
		return st
	}

	st.Available = true
	log.Printf("engine: ready (path=%q version=%q)", path, version)
	return st
}

// Verify runs `<path> --version` and returns the reported version.
func (e *Engine) Verify(ctx context.Context, path string) (string, error) {
	const op = "engine.Verify"
	if path == "" {
		return "", ocrerr.E(ocrerr.EngineUnavailable, op, errors.New("empty path"))
	}
	timeout := e.VersionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.WaitDelay = time.Second
	// tesseract 3.x prints the version to stderr
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", ocrerr.E(ocrerr.EngineUnavailable, op, fmt.Errorf("%s --version: %w", path, err))
	}
	return parseVersion(out.String()), nil
}

// SelfTest renders SelfTestSample and pushes it through the decoder and the
// recognizer. A binary can answer --version and still fail here, e.g. when
// language data is missing.
func (e *Engine) SelfTest(ctx context.Context, path string) (bool, error) {
	const op = "engine.SelfTest"
	if e.Recognizer == nil {
		return false, ocrerr.E(ocrerr.EngineSelfTestFailed, op, errors.New("no recognizer"))
	}
	data, err := imagecodec.EncodePNG(SampleImage(SelfTestSample))
	if err != nil {
		return false, ocrerr.E(ocrerr.EngineSelfTestFailed, op, err)
	}
	dec := e.Decoder
	if dec == nil {
		dec = imagecodec.NewDecoder(0)
	}
	img, err := dec.Decode(data)
	if err != nil {
		return false, ocrerr.E(ocrerr.EngineSelfTestFailed, op, err)
	}

	if e.SelfTestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.SelfTestTimeout)
		defer cancel()
	}
	text, err := e.Recognizer.Recognize(ctx, path, img.Image)
	if err != nil {
		return false, ocrerr.E(ocrerr.EngineSelfTestFailed, op, err)
	}
	if !strings.Contains(text, "123") {
		log.Printf("engine: self-test output %q does not contain the sample; recognition may be degraded", text)
	}
	return true, nil
}

// SampleImage draws text in black on white and scales it up 4x so the
// engine sees glyphs at a realistic size.
func SampleImage(text string) image.Image {
	const pad, scale = 8, 4
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil() + 2*pad
	h := face.Metrics().Height.Ceil() + 2*pad

	small := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(pad, pad+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	big := image.NewGray(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)
	return big
}

func parseVersion(out string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(out), "\n", 2)[0])
	if line == "" {
		return "unknown"
	}
	fields := strings.Fields(line)
	v := fields[len(fields)-1]
	if len(fields) >= 2 && strings.EqualFold(fields[0], "tesseract") {
		v = fields[1]
	}
	return strings.TrimPrefix(v, "v")
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
