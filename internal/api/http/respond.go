package http

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/mindengage-ocr/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error string `json:"error"`
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

type ocrResp struct {
	ExtractedText string `json:"extracted_text"`
}

// writeEnvelope is the JSON renderer.
func writeEnvelope(w http.ResponseWriter, env pipeline.Envelope) {
	if !env.OK() {
		writeErr(w, env.Status(), env.Failure.Message)
		return
	}
	writeJSON(w, http.StatusOK, ocrResp{ExtractedText: env.Text})
}
