// Package sloghook emits cache events to a *slog.Logger. Hit/miss events
// can be sampled to avoid floods, and keys are redacted by default since
// cache keys often embed user queries.
package sloghook

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/sidecache"
)

type Options struct {
	// HitMissEvery samples hit/miss logging: only every Nth event is
	// emitted. 0/1 = log all.
	HitMissEvery uint64
	// Redact transforms keys before they reach the log. Defaults to a
	// SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ sidecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitMissEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("sidecache.hit", "key", h.redact(key))
}

func (h *Hooks) Miss(key string) {
	if h.l == nil || !sample(h.opts.HitMissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("sidecache.miss", "key", h.redact(key))
}

func (h *Hooks) BackendError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("sidecache.backend_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) CodecError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("sidecache.codec_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) PatternInvalidated(pattern string, removed int64) {
	if h.l == nil {
		return
	}
	h.l.Info("sidecache.pattern_invalidated",
		"pattern", pattern,
		"removed", removed)
}
