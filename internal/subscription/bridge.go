// Package subscription turns push channel events into board replacements.
package subscription

import (
	"context"
	"fmt"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/park285/cheese-board-client/internal/gateway"
	"go.uber.org/zap"
)

type Replacer interface {
	Replace(src boardsync.Source, snap domain.Snapshot)
}

// GameState reports whether a game has been joined. Rejoin re-runs the join
// flow for it and replaces the board with whatever the service returns.
type GameState interface {
	Started() bool
	Rejoin(ctx context.Context) error
}

type Bridge struct {
	board  Replacer
	game   GameState
	logger *zap.Logger

	// OnKicked is called after a forced disconnect. Reconnecting is up to the caller.
	OnKicked func(reason string)
}

func NewBridge(board Replacer, game GameState, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{board: board, game: game, logger: logger}
}

// Run dispatches events until ctx is done or the channel is closed.
func (b *Bridge) Run(ctx context.Context, events <-chan gateway.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles a single event. It never fails; problems are logged and
// the last good snapshot stays in place.
func (b *Bridge) Dispatch(ctx context.Context, ev gateway.Event) {
	switch e := ev.(type) {
	case gateway.EventBoardUpdated:
		snap, err := boardcodec.Decode(e.Board)
		if err != nil {
			b.logger.Warn("push_board_rejected", zap.String("board", e.Board), zap.Error(err))
			return
		}
		b.board.Replace(boardsync.SourcePush, snap)
	case gateway.EventCleared:
		b.board.Replace(boardsync.SourceReset, boardcodec.Starting())
	case gateway.EventConnection:
		b.logger.Info("push_connection", zap.String("state", string(e.State)))
		if e.State != gateway.StateSubscribed || b.game == nil || !b.game.Started() {
			return
		}
		// messages missed while disconnected are gone; fetch the board again
		if err := b.game.Rejoin(ctx); err != nil {
			b.logger.Warn("push_rejoin_failed", zap.Error(err))
		}
	case gateway.EventKicked:
		b.logger.Warn("push_kicked", zap.String("reason", e.Reason))
		if b.OnKicked != nil {
			b.OnKicked(e.Reason)
		}
	case gateway.EventError:
		b.logger.Warn("push_error", zap.Error(e.Err))
	case gateway.EventUnknown:
		b.logger.Info("push_unsupported",
			zap.String("type", e.Type),
			zap.ByteString("raw", e.Raw),
			zap.Error(gateway.ErrUnrecognizedMessage),
		)
	default:
		b.logger.Info("push_unsupported", zap.String("event", fmt.Sprintf("%T", ev)), zap.Error(gateway.ErrUnrecognizedMessage))
	}
}
