package gateway

import (
	"context"
	"time"

	"github.com/park285/cheese-board-client/internal/domain"
	"go.uber.org/zap"
)

// Gateway is the remote call surface the client consumes. Both calls are
// fallible and return no partial results.
type Gateway interface {
	Join(ctx context.Context, sessionID string) (*JoinResponse, error)
	Move(ctx context.Context, req domain.MoveRequest) (*MoveResponse, error)
}

var _ Gateway = (*Client)(nil)

// NewLogged wraps g and logs every call with its latency.
func NewLogged(g Gateway, logger *zap.Logger) Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggedGateway{next: g, logger: logger}
}

type loggedGateway struct {
	next   Gateway
	logger *zap.Logger
}

func (l *loggedGateway) Join(ctx context.Context, sessionID string) (*JoinResponse, error) {
	start := time.Now()
	resp, err := l.next.Join(ctx, sessionID)
	fields := []zap.Field{zap.String("session_id", sessionID), zap.Duration("latency", time.Since(start))}
	if err != nil {
		l.logger.Warn("gateway_join_error", append(fields, zap.Error(err))...)
		return nil, err
	}
	if resp != nil && resp.Error != "" {
		fields = append(fields, zap.String("remote_error", resp.Error))
	}
	l.logger.Info("gateway_join", fields...)
	return resp, nil
}

func (l *loggedGateway) Move(ctx context.Context, req domain.MoveRequest) (*MoveResponse, error) {
	start := time.Now()
	resp, err := l.next.Move(ctx, req)
	fields := []zap.Field{
		zap.String("session_id", req.SessionID),
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		l.logger.Warn("gateway_move_error", append(fields, zap.Error(err))...)
		return nil, err
	}
	l.logger.Info("gateway_move", fields...)
	return resp, nil
}
