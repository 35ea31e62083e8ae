package journal

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"go.uber.org/zap"
)

const defaultBuffer = 64

type SessionSource interface {
	SessionID() (string, bool)
}

// Recorder is a boardsync.Observer that writes replacements to a Repository
// from its own goroutine. When the buffer is full entries are dropped.
type Recorder struct {
	repo     Repository
	sessions SessionSource
	logger   *zap.Logger

	ch   chan Entry
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

func NewRecorder(repo Repository, sessions SessionSource, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
		ch:       make(chan Entry, buffer),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

// Observed implements boardsync.Observer. It never blocks.
func (r *Recorder) Observed(rep boardsync.Replacement) {
	sessionID, ok := "", false
	if r.sessions != nil {
		sessionID, ok = r.sessions.SessionID()
	}
	if !ok {
		return
	}
	e := Entry{
		SessionID:  sessionID,
		Seq:        rep.Seq,
		Source:     string(rep.Source),
		Board:      boardcodec.Encode(rep.Snapshot),
		Pieces:     rep.Snapshot.Len(),
		RecordedAt: rep.At,
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	var dropped int
	select {
	case r.ch <- e:
	default:
		r.dropped++
		dropped = r.dropped
	}
	r.mu.Unlock()
	if dropped > 0 {
		r.logger.Warn("journal_dropped", zap.Uint64("seq", rep.Seq), zap.Int("dropped", dropped))
	}
}

func (r *Recorder) loop() {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.Record(ctx, e); err != nil {
			r.logger.Warn("journal_record_failed",
				zap.String("session_id", e.SessionID),
				zap.Uint64("seq", e.Seq),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close flushes pending entries and stops the writer. Replacements observed
// after Close are ignored.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
