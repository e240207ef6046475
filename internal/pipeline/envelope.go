package pipeline

import (
	"net/http"

	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

const (
	MsgRunning        = "OCR Service is running!"
	MsgNotConfigured  = "OCR Service is not properly configured. Please check the logs."
	MsgMissingImage   = "No image uploaded"
	MsgEmptySelection = "No image selected"
	MsgTooLarge       = "Image too large"
	MsgInvalidImage   = "Invalid image file"
	MsgRecognition    = "Error processing image"
	MsgInternal       = "Internal server error"
)

// Failure is the client-facing half of a failed request. It never carries
// the underlying error.
type Failure struct {
	Kind    ocrerr.Kind
	Message string
	Status  int
}

// Envelope is either a success (Failure == nil) carrying Text, or a Failure.
type Envelope struct {
	Text    string
	Failure *Failure
}

func Success(text string) Envelope { return Envelope{Text: text} }

// Fail builds the envelope for kind. Kinds without a client mapping become
// InternalError.
func Fail(kind ocrerr.Kind) Envelope {
	f := failures[kind]
	if f == nil {
		f = failures[ocrerr.InternalError]
	}
	cp := *f
	return Envelope{Failure: &cp}
}

func (e Envelope) OK() bool { return e.Failure == nil }

func (e Envelope) Kind() ocrerr.Kind {
	if e.Failure == nil {
		return ocrerr.KindNone
	}
	return e.Failure.Kind
}

func (e Envelope) Status() int {
	if e.Failure == nil {
		return http.StatusOK
	}
	return e.Failure.Status
}

var failures = map[ocrerr.Kind]*Failure{
	ocrerr.MissingImage:         {ocrerr.MissingImage, MsgMissingImage, http.StatusBadRequest},
	ocrerr.EmptySelection:       {ocrerr.EmptySelection, MsgEmptySelection, http.StatusBadRequest},
	ocrerr.ImageTooLarge:        {ocrerr.ImageTooLarge, MsgTooLarge, http.StatusRequestEntityTooLarge},
	ocrerr.InvalidImage:         {ocrerr.InvalidImage, MsgInvalidImage, http.StatusBadRequest},
	ocrerr.ServiceUnavailable:   {ocrerr.ServiceUnavailable, MsgNotConfigured, http.StatusInternalServerError},
	ocrerr.EngineUnavailable:    {ocrerr.ServiceUnavailable, MsgNotConfigured, http.StatusInternalServerError},
	ocrerr.EngineSelfTestFailed: {ocrerr.ServiceUnavailable, MsgNotConfigured, http.StatusInternalServerError},
	ocrerr.RecognitionFailed:    {ocrerr.RecognitionFailed, MsgRecognition, http.StatusInternalServerError},
	ocrerr.InternalError:        {ocrerr.InternalError, MsgInternal, http.StatusInternalServerError},
}
