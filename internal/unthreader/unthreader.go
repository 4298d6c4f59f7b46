// Package unthreader implements the cooperative serializer (spec.md §4,
// component E) that gates side-effecting regions of a cleaner program
// (HTTP requests, cache-miss replay timing) behind a single process-wide
// lock, so a deployment that wants fully-ordered network traffic can ask
// for it without giving up the rest of the engine's parallelism.
package unthreader

import (
	"context"
	"sync"
	"time"
)

// Mode selects whether side-effecting regions are serialized.
type Mode int

const (
	// Off lets every goroutine run side-effecting regions concurrently.
	Off Mode = iota
	// SerializeAll gates every protected region behind one reentrant lock.
	SerializeAll
)

type ctxKey struct{}

// Unthreader is the process-wide coordinator. The zero value is Off.
type Unthreader struct {
	mode Mode
	mu   sync.Mutex

	releasedAt   time.Time
	hasReleasedAt bool
	releaseMu    sync.Mutex
}

// New constructs an Unthreader in the given mode.
func New(mode Mode) *Unthreader {
	return &Unthreader{mode: mode}
}

// Mode reports the coordinator's current mode.
func (u *Unthreader) Mode() Mode { return u.mode }

// Handle represents one held (or reentrantly-skipped) acquisition. It must
// be released exactly once, on every exit path including errors — the
// caller typically does this with `defer h.Release()` immediately after
// Acquire returns, matching spec.md §5's "handle is bound to a lexical
// region" requirement.
type Handle struct {
	u       *Unthreader
	held    bool // true if this Handle actually locked u.mu
	reentry bool
}

// Acquire enters a side-effecting region. If the Unthreader is Off, it
// returns a no-op handle immediately. If ctx already carries a Handle for
// this Unthreader (a nested acquisition on the same call stack — e.g. a
// CacheUrl around an ExpandShortLink), it reenters without blocking: the
// engine has no suspension points inside one task (spec.md §5), so nested
// acquisitions only ever happen on the same goroutine that holds the lock.
func (u *Unthreader) Acquire(ctx context.Context) (*Handle, context.Context) {
	if u == nil || u.mode == Off {
		return &Handle{u: u}, ctx
	}
	if existing, ok := ctx.Value(ctxKey{}).(*Unthreader); ok && existing == u {
		return &Handle{u: u, reentry: true}, ctx
	}
	u.mu.Lock()
	return &Handle{u: u, held: true}, context.WithValue(ctx, ctxKey{}, u)
}

// Release exits the protected region. It is safe (and required) to call
// exactly once per Handle, including on error/rollback paths.
func (h *Handle) Release() {
	if h == nil || h.u == nil || !h.held {
		return
	}
	h.u.recordRelease(time.Now())
	h.u.mu.Unlock()
}

func (u *Unthreader) recordRelease(t time.Time) {
	u.releaseMu.Lock()
	defer u.releaseMu.Unlock()
	u.releasedAt = t
	u.hasReleasedAt = true
}

// LastRelease returns the timestamp of the most recent Release, used by
// CacheUrl's delay replay to offset from a stable baseline instead of
// `time.Now()` (spec.md §5 Unthreader / §4.H CacheUrl semantics).
func (u *Unthreader) LastRelease() (time.Time, bool) {
	if u == nil {
		return time.Time{}, false
	}
	u.releaseMu.Lock()
	defer u.releaseMu.Unlock()
	return u.releasedAt, u.hasReleasedAt
}
