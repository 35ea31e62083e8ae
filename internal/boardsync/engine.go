// Package boardsync owns the authoritative board snapshot on the client.
package boardsync

import (
	"sync"
	"time"

	"github.com/park285/cheese-board-client/internal/domain"
	"go.uber.org/zap"
)

// Source tags where a replacement came from. It is informational only and
// never used to order or reject replacements.
type Source string

const (
	SourceJoin    Source = "join"
	SourceMove    Source = "move"
	SourcePush    Source = "push"
	SourceReset   Source = "reset"
	SourceRestore Source = "restore"
)

type RedrawFunc func(snap domain.Snapshot)

// Replacement describes one applied snapshot swap.
type Replacement struct {
	Seq      uint64
	Source   Source
	Snapshot domain.Snapshot
	At       time.Time
}

type Observer interface {
	Observed(r Replacement)
}

type redrawEntry struct {
	id int
	fn RedrawFunc
}

// Engine serializes every replacement through one mutex. Redraw callbacks and
// observers run while it is held, so consumers see replacements in order.
type Engine struct {
	mu   sync.Mutex
	snap domain.Snapshot
	seq  uint64

	cbM       sync.RWMutex
	redraws   []redrawEntry
	nextCbID  int
	observers []Observer

	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	empty, _ := domain.NewSnapshot(nil)
	return &Engine{snap: empty, logger: logger}
}

// Replace swaps the current snapshot for snap and redraws from scratch.
// Last arrival wins; a stale push landing after a fresher move response will
// roll the board back until the next replacement.
func (e *Engine) Replace(src Source, snap domain.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.snap = snap
	e.seq++
	r := Replacement{Seq: e.seq, Source: src, Snapshot: snap, At: time.Now()}

	e.cbM.RLock()
	redraws := make([]redrawEntry, len(e.redraws))
	copy(redraws, e.redraws)
	observers := append([]Observer(nil), e.observers...)
	e.cbM.RUnlock()

	for _, entry := range redraws {
		if entry.fn != nil {
			entry.fn(snap)
		}
	}
	for _, o := range observers {
		o.Observed(r)
	}
	e.logger.Debug("board_replaced",
		zap.String("source", string(src)),
		zap.Uint64("seq", r.Seq),
		zap.Int("pieces", snap.Len()),
	)
}

func (e *Engine) Current() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Seq counts replacements applied so far.
func (e *Engine) Seq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

func (e *Engine) OnReplaced(fn RedrawFunc) int {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	e.nextCbID++
	e.redraws = append(e.redraws, redrawEntry{id: e.nextCbID, fn: fn})
	return e.nextCbID
}

func (e *Engine) RemoveCallback(id int) {
	e.cbM.Lock()
	defer e.cbM.Unlock()
	for i, cb := range e.redraws {
		if cb.id == id {
			e.redraws = append(e.redraws[:i], e.redraws[i+1:]...)
			break
		}
	}
}

func (e *Engine) Observe(o Observer) {
	if o == nil {
		return
	}
	e.cbM.Lock()
	e.observers = append(e.observers, o)
	e.cbM.Unlock()
}
