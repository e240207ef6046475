package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-ocr/internal/eventlog"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

type EventLister interface {
	List(ctx context.Context, typ string, limit int) ([]eventlog.Event, error)
}

type eventResp struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Key       string         `json:"key"`
	Kind      ocrerr.Kind    `json:"kind,omitempty"`
	Data      map[string]any `json:"data"`
	CreatedAt int64          `json:"created_at"`
}

// GET /events?type=ocr.failed&limit=50
func EventsHandler(el EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeErr(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		evs, err := el.List(r.Context(), r.URL.Query().Get("type"), limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "list events failed")
			return
		}
		out := make([]eventResp, 0, len(evs))
		for _, e := range evs {
			out = append(out, eventResp{
				ID:        e.ID,
				Type:      e.Type,
				Key:       e.Key,
				Kind:      e.Kind,
				Data:      e.Data,
				CreatedAt: e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
