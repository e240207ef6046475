package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mind-engage/mindengage-ocr/internal/ocrerr"
)

// Status is an immutable readiness snapshot.
type Status struct {
	Available      bool
	ExecutablePath string
	Version        string
	LastError      ocrerr.Kind
	CheckedAt      time.Time
}

// Readiness publishes the current Status. Reads are a single atomic load so
// the request path never contends with a recheck.
type Readiness struct {
	cur atomic.Pointer[Status]

	mu      sync.Mutex // serializes Recheck only
	recheck func(context.Context) Status
}

// NewReadiness publishes initial. recheck may be nil, in which case Recheck
// returns the current snapshot unchanged.
func NewReadiness(initial Status, recheck func(context.Context) Status) *Readiness {
	r := &Readiness{recheck: recheck}
	r.cur.Store(&initial)
	return r
}

func (r *Readiness) Status() Status {
	if s := r.cur.Load(); s != nil {
		return *s
	}
	return Status{LastError: ocrerr.EngineUnavailable}
}

// Recheck recomputes and publishes the snapshot. The check runs detached
// from ctx so a cancelled caller never publishes an outage; the engine steps
// carry their own bounds.
func (r *Readiness) Recheck(ctx context.Context) Status {
	if r.recheck == nil {
		return r.Status()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.recheck(context.WithoutCancel(ctx))
	r.cur.Store(&s)
	return s
}
