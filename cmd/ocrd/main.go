package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/mindengage-ocr/internal/api/http"
	"github.com/mind-engage/mindengage-ocr/internal/config"
	"github.com/mind-engage/mindengage-ocr/internal/db"
	"github.com/mind-engage/mindengage-ocr/internal/engine"
	"github.com/mind-engage/mindengage-ocr/internal/eventlog"
	"github.com/mind-engage/mindengage-ocr/internal/imagecodec"
	"github.com/mind-engage/mindengage-ocr/internal/ocr"
	"github.com/mind-engage/mindengage-ocr/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- Recognizer ---
	var rec ocr.Recognizer
	inProcess := false
	switch cfg.Backend {
	case config.BackendLibrary:
		lib, err := ocr.NewLibrary(cfg.Lang)
		if err != nil {
			log.Fatalf("ocr backend: %v", err)
		}
		lib.Timeout = cfg.OCRTimeout
		rec, inProcess = lib, true
	default:
		t := ocr.NewTesseract()
		t.Lang = cfg.Lang
		t.Timeout = cfg.OCRTimeout
		t.ScratchDir = cfg.ScratchDir
		rec = t
	}

	// --- Engine readiness (settled before we listen) ---
	eng := engine.New(engine.NewLocator(cfg.EnginePath), rec)
	eng.Decoder = imagecodec.NewDecoder(cfg.MaxImagePixels)
	if inProcess {
		eng.InProcess = true
		eng.InProcessVer = ocr.LibraryVersion()
	}

	// --- Event log (optional) ---
	var events *eventlog.Repo
	if cfg.EventLogDriver != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbh, err := db.Open(ctx, db.Driver(cfg.EventLogDriver), cfg.EventLogDSN)
		cancel()
		if err != nil {
			log.Fatalf("event log open failed: %v", err)
		}
		defer dbh.Close()
		events = eventlog.NewRepo(dbh)
	}

	check := func(ctx context.Context) engine.Status {
		st := eng.Initialize(ctx)
		if events != nil {
			err := events.Append(ctx, eventlog.Event{
				Type: eventlog.TypeEngineChecked,
				Kind: st.LastError,
				Data: map[string]any{"available": st.Available, "version": st.Version},
			})
			if err != nil {
				log.Printf("event log: %v", err)
			}
		}
		return st
	}
	rd := engine.NewReadiness(check(context.Background()), check)

	p := pipeline.New(rd, imagecodec.NewDecoder(cfg.MaxImagePixels), rec)
	if events != nil {
		p.Recorder = events
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	// a recheck on /readyz runs the full version query and self-test
	r.Use(middleware.Timeout(max(cfg.OCRTimeout, eng.VersionTimeout+eng.SelfTestTimeout) + 15*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	srvDeps := &api.Server{Pipeline: p, Readiness: rd, MaxUploadBytes: cfg.MaxUploadBytes}
	if events != nil {
		srvDeps.Events = events
	}
	api.Mount(r, srvDeps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		st := rd.Status()
		log.Printf("listening on %s (backend=%s, engine_available=%t, version=%q)",
			cfg.HTTPAddr, cfg.Backend, st.Available, st.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCRTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
