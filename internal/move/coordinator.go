// Package move turns a click on a target square into a remote move request.
package move

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/park285/cheese-board-client/internal/gateway"
	"github.com/park285/cheese-board-client/internal/selection"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no active session")

// DefaultTimeout bounds a move request when none is configured.
const DefaultTimeout = 15 * time.Second

type State string

const (
	Idle        State = "idle"
	RequestSent State = "request_sent"
	Applied     State = "applied"
	Failed      State = "failed"
)

type Outcome struct {
	State State
	From  string
	To    string
	// Snapshot is set only when State is Applied.
	Snapshot domain.Snapshot
}

// SessionSource yields the session ID moves are sent for.
type SessionSource interface {
	SessionID() (string, bool)
}

type Mover interface {
	Move(ctx context.Context, req domain.MoveRequest) (*gateway.MoveResponse, error)
}

type Replacer interface {
	Replace(src boardsync.Source, snap domain.Snapshot)
}

type Clearer interface {
	Clear()
}

type Coordinator struct {
	gw        Mover
	board     Replacer
	selection Clearer
	sessions  SessionSource
	timeout   time.Duration
	logger    *zap.Logger

	mu    sync.Mutex
	state State
}

type Option func(*Coordinator)

// WithTimeout sets the per-move deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCoordinator(gw Mover, board Replacer, sel Clearer, sessions SessionSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		gw:        gw,
		board:     board,
		selection: sel,
		sessions:  sessions,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
		state:     Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the state of the latest attempt.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Attempt moves the piece referenced by from to target. A nil from is a no-op.
// The board is only replaced from a successful response; on any failure the
// snapshot is left as it was.
func (c *Coordinator) Attempt(ctx context.Context, from *selection.Ref, target domain.Square) (Outcome, error) {
	if from == nil {
		c.setState(Idle)
		return Outcome{State: Idle}, nil
	}

	fromTok, err := boardcodec.EncodeSquare(from.Square)
	if err != nil {
		return c.fail(Outcome{}, fmt.Errorf("move from: %w", err))
	}
	toTok, err := boardcodec.EncodeSquare(target)
	if err != nil {
		return c.fail(Outcome{From: fromTok}, fmt.Errorf("move to: %w", err))
	}
	out := Outcome{From: fromTok, To: toTok}

	sessionID, ok := "", false
	if c.sessions != nil {
		sessionID, ok = c.sessions.SessionID()
	}
	if !ok || sessionID == "" {
		return c.fail(out, ErrNoSession)
	}

	c.setState(RequestSent)
	c.logger.Info("move_attempt",
		zap.String("session_id", sessionID),
		zap.String("from", fromTok),
		zap.String("to", toTok),
	)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.gw.Move(callCtx, domain.MoveRequest{SessionID: sessionID, From: fromTok, To: toTok})
	if err != nil {
		if !errors.Is(err, gateway.ErrRemoteCallFailed) {
			err = fmt.Errorf("%w: %w", gateway.ErrRemoteCallFailed, err)
		}
		return c.fail(out, err)
	}
	if resp == nil || resp.Board == "" {
		return c.fail(out, fmt.Errorf("%w: empty board in move response", gateway.ErrRemoteCallFailed))
	}

	// selection goes before the response is processed
	if c.selection != nil {
		c.selection.Clear()
	}

	snap, err := boardcodec.Decode(resp.Board)
	if err != nil {
		return c.fail(out, fmt.Errorf("move response: %w", err))
	}
	c.board.Replace(boardsync.SourceMove, snap)

	out.State = Applied
	out.Snapshot = snap
	c.setState(Applied)
	c.logger.Info("move_applied",
		zap.String("session_id", sessionID),
		zap.String("from", fromTok),
		zap.String("to", toTok),
		zap.Int("pieces", snap.Len()),
	)
	return out, nil
}

func (c *Coordinator) fail(out Outcome, err error) (Outcome, error) {
	out.State = Failed
	c.setState(Failed)
	c.logger.Warn("move_failed",
		zap.String("from", out.From),
		zap.String("to", out.To),
		zap.Error(err),
	)
	return out, err
}
