// Package journal records every board replacement so ordering problems between
// move responses and push updates can be reconstructed afterwards.
package journal

import (
	"context"
	"errors"
	"time"
)

var ErrNoSession = errors.New("journal: session id required")

type Entry struct {
	ID         int64
	SessionID  string
	Seq        uint64
	Source     string
	Board      string
	Pieces     int
	RecordedAt time.Time
}

type Repository interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries for sessionID, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}
