package http

import (
	"net/http"

	"github.com/mind-engage/mindengage-ocr/internal/pipeline"
)

// GET /
func RootHandler(p *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, env := p.Health()
		if !env.OK() {
			writeErr(w, env.Status(), env.Failure.Message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":         env.Text,
			"engine_version": st.Version,
		})
	}
}

// POST /ocr (multipart: image=<file>)
func OCRHandler(p *pipeline.Pipeline, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limitBody(w, r, maxUpload)
		writeEnvelope(w, p.Run(r))
	}
}

func limitBody(w http.ResponseWriter, r *http.Request, n int64) {
	if n > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, n)
	}
}
