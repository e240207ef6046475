// Package pipeline runs one OCR request end to end:
//
//	Received -> Validated -> Decoded -> Recognized -> Rendered
//
// with ErrorRendered reachable from every stage before Rendered. Each stage
// returns a classified error and the first failure ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/mindengage-ocr/internal/engine"
	"github.com/mind-engage/mindengage-ocr/internal/eventlog"
	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocr"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateDecoded    State = "decoded"
	StateRecognized State = "recognized"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// multipart parts above this size spill to temp files
const maxFormMemory = 8 << 20

type Readiness interface {
	Status() engine.Status
}

type Decoder interface {
	Decode(data []byte) (imagecodec.Decoded, error)
}

// Recorder receives one outcome per request. Errors are logged only.
type Recorder interface {
	Record(ctx context.Context, o eventlog.Outcome) error
}

// Upload is the image as received. It lives for one request.
type Upload struct {
	Data     []byte
	Filename string
}

type Pipeline struct {
	Readiness  Readiness
	Decoder    Decoder
	Recognizer ocr.Recognizer
	Recorder   Recorder // optional
}

func New(rd Readiness, dec Decoder, rec ocr.Recognizer) *Pipeline {
	return &Pipeline{Readiness: rd, Decoder: dec, Recognizer: rec}
}

// Run always returns an envelope. Panics and unclassified errors become
// InternalError.
func (p *Pipeline) Run(r *http.Request) (env Envelope) {
	ctx := r.Context()
	start := time.Now()
	out := eventlog.Outcome{RequestID: middleware.GetReqID(ctx), Route: r.URL.Path}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("pipeline: req=%s route=%s panic: %v\n%s", out.RequestID, out.Route, rec, debug.Stack())
			env = Fail(ocrerr.InternalError)
		}
		out.Kind = env.Kind()
		out.Duration = time.Since(start)
		p.record(ctx, out)
	}()

	// The readiness gate comes first so a down engine fails fast without
	// parsing or decoding anything.
	st := p.Readiness.Status()
	if !st.Available {
		return p.fail(ctx, StateReceived, ocrerr.E(ocrerr.ServiceUnavailable, "pipeline.gate",
			fmt.Errorf("engine not ready (last error %q)", st.LastError)))
	}

	up, err := ReadUpload(r)
	if err != nil {
		return p.fail(ctx, StateReceived, err)
	}
	out.ImageBytes = len(up.Data)
	out.Fingerprint = eventlog.Fingerprint(up.Data)

	dec, err := p.decode(up)
	if err != nil {
		return p.fail(ctx, StateValidated, err)
	}
	out.Format = dec.Format

	text, err := p.recognize(ctx, st.ExecutablePath, dec.Image)
	if err != nil {
		return p.fail(ctx, StateDecoded, err)
	}
	out.TextLen = len(text)
	return Success(text)
}

// Health is the reduced pipeline behind the root routes.
func (p *Pipeline) Health() (engine.Status, Envelope) {
	st := p.Readiness.Status()
	if !st.Available {
		return st, Fail(ocrerr.ServiceUnavailable)
	}
	return st, Success(MsgRunning)
}

// ReadUpload extracts the image field. The multipart temp files are removed
// before it returns.
func ReadUpload(r *http.Request) (Upload, error) {
	const op = "pipeline.ReadUpload"
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return Upload{}, ocrerr.E(ocrerr.ImageTooLarge, op, err)
		}
		return Upload{}, ocrerr.E(ocrerr.MissingImage, op, err)
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile(FormField)
	if err != nil {
		// browsers submit an empty-named part when nothing was chosen
		if _, ok := r.MultipartForm.Value[FormField]; ok {
			return Upload{}, ocrerr.E(ocrerr.EmptySelection, op, err)
		}
		return Upload{}, ocrerr.E(ocrerr.MissingImage, op, err)
	}
	defer f.Close()
	if hdr.Filename == "" {
		return Upload{}, ocrerr.E(ocrerr.EmptySelection, op, errors.New("empty filename"))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, ocrerr.E(ocrerr.InternalError, op, err)
	}
	return Upload{Data: data, Filename: hdr.Filename}, nil
}

func (p *Pipeline) decode(up Upload) (imagecodec.Decoded, error) {
	dec, err := p.Decoder.Decode(up.Data)
	if err != nil {
		return imagecodec.Decoded{}, ocrerr.E(ocrerr.InvalidImage, "pipeline.decode", err)
	}
	return dec, nil
}

func (p *Pipeline) recognize(ctx context.Context, path string, img image.Image) (string, error) {
	text, err := p.Recognizer.Recognize(ctx, path, img)
	if err != nil {
		return "", ocrerr.E(ocrerr.RecognitionFailed, "pipeline.recognize", err)
	}
	return text, nil
}

// fail logs the detailed error server-side and returns the client envelope.
func (p *Pipeline) fail(ctx context.Context, at State, err error) Envelope {
	kind := ocrerr.KindOf(err)
	log.Printf("pipeline: req=%s state=%s kind=%s: %v", middleware.GetReqID(ctx), at, kind, err)
	return Fail(kind)
}

func (p *Pipeline) record(ctx context.Context, o eventlog.Outcome) {
	if p.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.Recorder.Record(ctx, o); err != nil {
		log.Printf("pipeline: req=%s record outcome: %v", o.RequestID, err)
	}
}
