package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mind-engage/mindengage-ocr/internal/engine"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

type Rechecker interface {
	Status() engine.Status
	Recheck(ctx context.Context) engine.Status
}

type readyResp struct {
	Available bool        `json:"available"`
	Version   string      `json:"version,omitempty"`
	LastError ocrerr.Kind `json:"last_error,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// GET /readyz[?recheck=1]. The executable path is not exposed.
func ReadyHandler(rd Rechecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st engine.Status
		switch r.URL.Query().Get("recheck") {
		case "1", "true":
			st = rd.Recheck(r.Context())
		default:
			st = rd.Status()
		}
		code := http.StatusOK
		if !st.Available {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readyResp{
			Available: st.Available,
			Version:   st.Version,
			LastError: st.LastError,
			CheckedAt: st.CheckedAt,
		})
	}
}

// GET /healthz
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
}
