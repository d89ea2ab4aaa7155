package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/store"
)

type Options struct {
	// Sampling to avoid floods under heavy contention; 0/1 = log all.
	RaceLostEvery uint64
	OpenedEvery   uint64
	// Redact replaces keys in logs with RedactJob(jobID), or with a SHA-256
	// prefix of the key when RedactJob is nil.
	Redact    bool
	RedactJob func(uint64) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	raceLostCtr atomic.Uint64
	openedCtr   atomic.Uint64
}

var _ shuffleio.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) job(k shuffleio.Key) string {
	if !h.opts.Redact {
		return k.String()
	}
	if h.opts.RedactJob != nil {
		return h.opts.RedactJob(k.JobID)
	}
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ObjectCreated(k shuffleio.Key, id store.ObjectID) {
	if h.l == nil {
		return
	}
	h.l.Info("shuffleio.object_created",
		"key", h.job(k),
		"oid_hi", id.Hi,
		"oid_lo", id.Lo,
		"class", id.Class().String())
}

func (h *Hooks) CreateRaceLost(k shuffleio.Key, id store.ObjectID) {
	if h.l == nil || !sample(h.opts.RaceLostEvery, &h.raceLostCtr) {
		return
	}
	h.l.Debug("shuffleio.create_race_lost",
		"key", h.job(k),
		"oid", id.String())
}

func (h *Hooks) ObjectOpened(k shuffleio.Key, id store.ObjectID) {
	if h.l == nil || !sample(h.opts.OpenedEvery, &h.openedCtr) {
		return
	}
	h.l.Debug("shuffleio.object_opened",
		"key", h.job(k),
		"oid", id.String())
}

func (h *Hooks) CreateFailed(k shuffleio.Key, id store.ObjectID, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("shuffleio.create_failed",
		"key", h.job(k),
		"oid", id.String(),
		"err", err)
}

func (h *Hooks) OpenFailed(k shuffleio.Key, id store.ObjectID, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("shuffleio.open_failed",
		"key", h.job(k),
		"oid", id.String(),
		"err", err)
}

func (h *Hooks) CloseFailed(k shuffleio.Key, id store.ObjectID, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("shuffleio.close_failed",
		"key", h.job(k),
		"oid", id.String(),
		"err", err)
}
