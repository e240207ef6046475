package eventlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-ocr/internal/db"
	"github.com/mind-engage/mindengage-ocr/internal/eventlog"
	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

func openRepo(t *testing.T) *eventlog.Repo {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return eventlog.NewRepo(dbh)
}

func TestRecordOutcomes(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	fp := eventlog.Fingerprint([]byte("png bytes"))
	if err := repo.Record(ctx, eventlog.Outcome{
		RequestID: "req-1", Route: "/ocr", ImageBytes: 9, Fingerprint: fp,
		Format: "png", TextLen: 5, Duration: 120 * time.Millisecond,
	}); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := repo.Record(ctx, eventlog.Outcome{
		RequestID: "req-2", Route: "/ocr", Kind: ocrerr.InvalidImage, ImageBytes: 3,
	}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	ok, err := repo.List(ctx, eventlog.TypeSucceeded, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ok) != 1 || ok[0].Key != "req-1" || ok[0].ID == "" {
		t.Fatalf("unexpected success events: %+v", ok)
	}
	if ok[0].Data["fingerprint"] != fp || ok[0].Data["text_len"] != float64(5) {
		t.Fatalf("unexpected payload: %+v", ok[0].Data)
	}
	if _, leaked := ok[0].Data["text"]; leaked {
		t.Fatalf("recognized text must never be stored")
	}

	failed, err := repo.List(ctx, eventlog.TypeFailed, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(failed) != 1 || failed[0].Kind != ocrerr.InvalidImage {
		t.Fatalf("unexpected failure events: %+v", failed)
	}

	all, err := repo.List(ctx, "", 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 events, got %d (%v)", len(all), err)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := eventlog.Fingerprint([]byte("same"))
	if a != eventlog.Fingerprint([]byte("same")) {
		t.Fatalf("fingerprint not deterministic")
	}
	if a == eventlog.Fingerprint([]byte("other")) {
		t.Fatalf("fingerprint collision on different input")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}
