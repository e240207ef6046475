// Package eventlog keeps an append-only record of request outcomes for
// operators. It stores a fingerprint of each upload, never the upload or the
// recognized text.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

const (
	TypeSucceeded     = "ocr.succeeded"
	TypeFailed        = "ocr.failed"
	TypeEngineChecked = "engine.checked"
)

type Event struct {
	ID        string
	Type      string
	Key       string
	Kind      ocrerr.Kind
	Data      map[string]any
	CreatedAt int64
}

// Outcome is what the pipeline reports for one request.
type Outcome struct {
	RequestID   string
	Route       string
	Kind        ocrerr.Kind // KindNone on success
	ImageBytes  int
	Fingerprint string
	Format      string
	TextLen     int
	Duration    time.Duration
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = r.now().Unix()
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (id, typ, key, kind, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.Type, e.Key, string(e.Kind), string(data), e.CreatedAt)
	return err
}

// Record stores a request outcome.
func (r *Repo) Record(ctx context.Context, o Outcome) error {
	typ := TypeSucceeded
	if o.Kind != ocrerr.KindNone {
		typ = TypeFailed
	}
	data := map[string]any{
		"route":       o.Route,
		"image_bytes": o.ImageBytes,
		"duration_ms": o.Duration.Milliseconds(),
	}
	if o.Fingerprint != "" {
		data["fingerprint"] = o.Fingerprint
	}
	if o.Format != "" {
		data["format"] = o.Format
	}
	if typ == TypeSucceeded {
		data["text_len"] = o.TextLen
	}
	return r.Append(ctx, Event{Type: typ, Key: o.RequestID, Kind: o.Kind, Data: data})
}

// List returns events of one type, oldest first. An empty typ lists all.
func (r *Repo) List(ctx context.Context, typ string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := `SELECT id, typ, key, kind, data, created_at FROM event_log`
	args := []any{}
	if typ != "" {
		q += ` WHERE typ = $1 ORDER BY seq LIMIT $2`
		args = append(args, typ, limit)
	} else {
		q += ` ORDER BY seq LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			kind string
			raw  string
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.Key, &kind, &raw, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = ocrerr.Kind(kind)
		if err := json.Unmarshal([]byte(raw), &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Fingerprint is a short content hash used to correlate repeated uploads.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
