// Package logging implements the bounded ring-buffer log described in
// spec.md §9: a fixed-capacity FIFO of (timestamp, message) entries that
// wraps instead of growing, with Clear() gated by platform
// authentication. Adapted from the telemetry package — the
// circular LogQueue/LogHead/LogCount bookkeeping in telemetry.go,
// rebuilt without its OTLP/network sending half (which has no SRC
// analogue: there is no collector to flush to) — and its SlogHandler
// bridge in telemetry/slog.go.
package logging

import (
	"context"
	"log/slog"
	"sync"

	"openenterprise/srccore/platform"
)

// Entry is a single ring-buffer record.
type Entry struct {
	TimestampMS uint32
	Message     string
}

// Ring is a fixed-capacity FIFO log. Zero value is not usable; use New.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	count    int
	clock    func() uint32
	authFunc func(ctx context.Context) bool
}

// New builds a Ring with room for capacity entries. clock supplies the
// monotonic millisecond timestamp (normally platform.System.NowMS);
// auth gates Clear.
func New(capacity int, clock func() uint32, auth func(ctx context.Context) bool) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		entries:  make([]Entry, capacity),
		clock:    clock,
		authFunc: auth,
	}
}

// NewFromSystem is a convenience constructor binding clock and auth to
// a platform.System.
func NewFromSystem(capacity int, sys platform.System) *Ring {
	return New(capacity, sys.NowMS, sys.Authenticate)
}

// Log appends an entry, overwriting the oldest one once full.
func (r *Ring) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := uint32(0)
	if r.clock != nil {
		ts = r.clock()
	}
	idx := (r.head + r.count) % len(r.entries)
	r.entries[idx] = Entry{TimestampMS: ts, Message: message}
	if r.count < len(r.entries) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.entries)
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.head+i)%len(r.entries)]
	}
	return out
}

// Clear empties the ring, but only if the platform authenticates the
// caller (spec.md §9: "Clearing requires authentication").
func (r *Ring) Clear(ctx context.Context) bool {
	if r.authFunc != nil && !r.authFunc(ctx) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.count = 0
	return true
}

// Handler bridges log/slog to a Ring, in the shape of
// telemetry.SlogHandler: every record both renders through a normal
// slog.Handler (for a console/debug sink) and is appended to the ring.
type Handler struct {
	next  slog.Handler
	ring  *Ring
	attrs []slog.Attr
	group string
}

// NewHandler wraps next (e.g. slog.NewTextHandler(os.Stderr, nil)) so
// every record it handles is also appended to ring.
func NewHandler(next slog.Handler, ring *Ring) *Handler {
	return &Handler{next: next, ring: ring}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)
	msg := r.Message
	if h.group != "" {
		msg = h.group + ":" + msg
	}
	r.Attrs(func(a slog.Attr) bool {
		msg += " " + a.String()
		return true
	})
	h.ring.Log(msg)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), ring: h.ring, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...), group: h.group}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &Handler{next: h.next.WithGroup(name), ring: h.ring, attrs: h.attrs, group: group}
}
