// Package sessionstore caches the joined lobby and last known board in Redis
// so a restarted client can pick up where it left off.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlSession = 24 * time.Hour

var ErrEmptyPlayer = errors.New("player id required")

// Session is the cached client state for one player.
type Session struct {
	LobbyID   string    `json:"lobby_id"`
	LobbyCode string    `json:"lobby_code"`
	Started   bool      `json:"started"`
	Board     string    `json:"board,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, ttl: ttlSession, now: time.Now}
}

// Open connects to REDIS_URL and pings it.
func Open(ctx context.Context, rawURL string) (*Store, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("REDIS_URL required for session store")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) key(player string) string { return "board:session:" + strings.TrimSpace(player) }

func (s *Store) Save(ctx context.Context, player string, sess Session) error {
	if strings.TrimSpace(player) == "" {
		return ErrEmptyPlayer
	}
	sess.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(player), raw, s.ttl).Err()
}

// Load returns nil, nil when nothing is cached for player.
func (s *Store) Load(ctx context.Context, player string) (*Session, error) {
	if strings.TrimSpace(player) == "" {
		return nil, ErrEmptyPlayer
	}
	raw, err := s.rdb.Get(ctx, s.key(player)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// SaveBoard updates only the cached board notation. Missing sessions are left alone.
func (s *Store) SaveBoard(ctx context.Context, player, notation string) error {
	sess, err := s.Load(ctx, player)
	if err != nil || sess == nil {
		return err
	}
	sess.Board = notation
	return s.Save(ctx, player, *sess)
}

func (s *Store) Delete(ctx context.Context, player string) error {
	if strings.TrimSpace(player) == "" {
		return ErrEmptyPlayer
	}
	return s.rdb.Del(ctx, s.key(player)).Err()
}
