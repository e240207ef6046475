package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-ocr/internal/pipeline"
)

// Server holds the dependencies of every route.
type Server struct {
	Pipeline       *pipeline.Pipeline
	Readiness      Rechecker
	MaxUploadBytes int64
	Events         EventLister // optional; /events is mounted only when set
}

// Mount registers the JSON API, the HTML page and the probes on r.
func Mount(r chi.Router, s *Server) {
	r.Get("/", RootHandler(s.Pipeline))
	r.Post("/ocr", OCRHandler(s.Pipeline, s.MaxUploadBytes))

	r.Route("/ui", func(ur chi.Router) {
		ur.Get("/", PageHandler(s.Pipeline, "/ui"))
		ur.Post("/", PageSubmitHandler(s.Pipeline, "/ui", s.MaxUploadBytes))
	})

	r.Get("/healthz", LiveHandler())
	r.Get("/readyz", ReadyHandler(s.Readiness))
	if s.Events != nil {
		r.Get("/events", EventsHandler(s.Events))
	}
}
