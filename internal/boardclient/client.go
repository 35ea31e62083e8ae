// Package boardclient wires the board components together and exposes the
// interaction entry points: join, entity and square clicks, misses.
package boardclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/park285/cheese-board-client/internal/gateway"
	"github.com/park285/cheese-board-client/internal/move"
	"github.com/park285/cheese-board-client/internal/scene"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/park285/cheese-board-client/internal/sessionstore"
	"go.uber.org/zap"
)

var ErrNotJoined = errors.New("no lobby joined")

// Store persists the joined lobby per player. *sessionstore.Store satisfies it.
type Store interface {
	Save(ctx context.Context, player string, sess sessionstore.Session) error
	Load(ctx context.Context, player string) (*sessionstore.Session, error)
	SaveBoard(ctx context.Context, player, notation string) error
	Delete(ctx context.Context, player string) error
}

type Client struct {
	gw     gateway.Gateway
	engine *boardsync.Engine
	scene  *scene.Scene
	sel    *selection.State
	moves  *move.Coordinator
	store  Store
	logger *zap.Logger

	player      string
	joinTimeout time.Duration
	moveTimeout time.Duration
	palette     selection.Palette

	mu      sync.RWMutex
	lobby   *domain.LobbySession
	started bool
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithStore(s Store, player string) Option {
	return func(c *Client) {
		c.store = s
		c.player = strings.TrimSpace(player)
	}
}

func WithJoinTimeout(d time.Duration) Option {
	return func(c *Client) { c.joinTimeout = d }
}

func WithMoveTimeout(d time.Duration) Option {
	return func(c *Client) { c.moveTimeout = d }
}

func WithPalette(p selection.Palette) Option {
	return func(c *Client) { c.palette = p }
}

func New(gw gateway.Gateway, opts ...Option) *Client {
	c := &Client{
		gw:          gw,
		logger:      zap.NewNop(),
		joinTimeout: 10 * time.Second,
		moveTimeout: move.DefaultTimeout,
		palette:     selection.DefaultPalette(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.engine = boardsync.NewEngine(c.logger.Named("sync"))
	c.scene = scene.New(c.palette, c.logger.Named("scene"))
	c.sel = selection.New(c.scene, c.palette)
	c.engine.OnReplaced(c.scene.Redraw)
	c.moves = move.NewCoordinator(gw, c.engine, c.sel, c,
		move.WithTimeout(c.moveTimeout),
		move.WithLogger(c.logger.Named("move")),
	)
	return c
}

func (c *Client) Engine() *boardsync.Engine   { return c.engine }
func (c *Client) Scene() *scene.Scene         { return c.scene }
func (c *Client) Selection() *selection.State { return c.sel }
func (c *Client) Moves() *move.Coordinator    { return c.moves }

func (c *Client) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

func (c *Client) Lobby() (domain.LobbySession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lobby == nil {
		return domain.LobbySession{}, false
	}
	return *c.lobby, true
}

// SessionID is the ID of the joined lobby. Only valid once a game started.
func (c *Client) SessionID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lobby == nil || !c.started {
		return "", false
	}
	return c.lobby.ID, true
}

type lobbyKey struct{ c *Client }

func (k lobbyKey) SessionID() (string, bool) {
	l, ok := k.c.Lobby()
	return l.ID, ok
}

// JournalKey reports the current lobby ID whether or not the game has started,
// so restore and join boards are attributed to the lobby they belong to.
func (c *Client) JournalKey() interface{ SessionID() (string, bool) } {
	return lobbyKey{c}
}

// Join asks the service for the lobby's board and applies it. On any failure
// lobby, started flag and board are left exactly as they were.
func (c *Client) Join(ctx context.Context, lobby domain.LobbySession) error {
	if strings.TrimSpace(lobby.ID) == "" {
		return fmt.Errorf("%w: empty lobby id", gateway.ErrSessionJoinFailed)
	}

	snap, err := c.fetch(ctx, lobby.ID)
	if err != nil {
		c.logger.Warn("lobby_join_failed", zap.String("lobby_id", lobby.ID), zap.Error(err))
		return err
	}

	// session first: observers of the replacement below must see the new lobby
	c.mu.Lock()
	l := lobby
	c.lobby = &l
	c.started = true
	c.mu.Unlock()

	c.engine.Replace(boardsync.SourceJoin, snap)

	c.logger.Info("lobby_join", zap.String("lobby_id", lobby.ID), zap.String("lobby_code", lobby.Code))
	c.persist(ctx, snap)
	return nil
}

// Rejoin re-runs the join flow for the current lobby.
func (c *Client) Rejoin(ctx context.Context) error {
	lobby, ok := c.Lobby()
	if !ok {
		return ErrNotJoined
	}
	return c.Join(ctx, lobby)
}

func (c *Client) fetch(ctx context.Context, lobbyID string) (domain.Snapshot, error) {
	if c.joinTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.joinTimeout)
		defer cancel()
	}
	resp, err := c.gw.Join(ctx, lobbyID)
	if err != nil {
		if !errors.Is(err, gateway.ErrRemoteCallFailed) {
			err = fmt.Errorf("%w: %w", gateway.ErrRemoteCallFailed, err)
		}
		return domain.Snapshot{}, err
	}
	if resp == nil {
		return domain.Snapshot{}, fmt.Errorf("%w: empty response", gateway.ErrSessionJoinFailed)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", gateway.ErrSessionJoinFailed, msg)
	}
	if strings.TrimSpace(resp.Board) == "" {
		return domain.Snapshot{}, fmt.Errorf("%w: empty board", gateway.ErrSessionJoinFailed)
	}
	snap, err := boardcodec.Decode(resp.Board)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("join board: %w", err)
	}
	return snap, nil
}

// OnEntityClicked selects the entity with the given ID. An ID that no longer
// resolves clears the selection.
func (c *Client) OnEntityClicked(id string) {
	ref := c.scene.Ref(id)
	if ref == nil {
		c.logger.Debug("entity_click_unknown", zap.String("id", id))
	}
	c.sel.Select(ref)
}

// OnSquareClicked tries to move the selected piece to sq. The move starts
// from the entity's current square; a selection whose entity did not survive
// the last redraw is dropped and nothing is sent.
func (c *Client) OnSquareClicked(ctx context.Context, sq domain.Square) (move.Outcome, error) {
	out, err := c.moves.Attempt(ctx, c.resolveSelection(), sq)
	if err == nil && out.State == move.Applied {
		c.saveBoard(ctx, out.Snapshot)
	}
	return out, err
}

// resolveSelection looks the held entity up in the scene. Stale selections,
// and selections left over from a game that ended, are cleared here so the
// push path never has to touch the selection.
func (c *Client) resolveSelection() *selection.Ref {
	ref, ok := c.sel.Current()
	if !ok {
		return nil
	}
	e, live := c.scene.Entity(ref.ID)
	if !live || !c.Started() {
		c.logger.Debug("selection_dropped",
			zap.String("id", ref.ID),
			zap.Bool("entity_live", live),
		)
		c.sel.Clear()
		return nil
	}
	ref.Square = e.Square
	return &ref
}

func (c *Client) OnMissed() {
	c.sel.Select(nil)
}

// HandleKicked drops the started flag after a forced disconnect. The lobby is
// kept so a later Rejoin can be attempted by hand. A held selection is left
// for the next square click to discard.
func (c *Client) HandleKicked(reason string) {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
	c.logger.Warn("lobby_kicked", zap.String("reason", reason))
	if c.store != nil && c.player != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := c.store.Delete(ctx, c.player); err != nil {
			c.logger.Warn("session_delete_failed", zap.Error(err))
		}
	}
}

// Restore loads the cached session for playerID. A started session shows the
// cached board right away and is then re-joined to get the real one.
func (c *Client) Restore(ctx context.Context, playerID string) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	if strings.TrimSpace(playerID) != "" {
		c.player = strings.TrimSpace(playerID)
	}
	sess, err := c.store.Load(ctx, c.player)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.LobbyID == "" {
		return false, nil
	}
	lobby := domain.LobbySession{ID: sess.LobbyID, Code: sess.LobbyCode}
	c.mu.Lock()
	c.lobby = &lobby
	c.mu.Unlock()

	if !sess.Started {
		return true, nil
	}
	if sess.Board != "" {
		if snap, err := boardcodec.Decode(sess.Board); err == nil {
			c.engine.Replace(boardsync.SourceRestore, snap)
		} else {
			c.logger.Warn("session_board_invalid", zap.Error(err))
		}
	}
	c.logger.Info("session_restored", zap.String("lobby_id", lobby.ID))
	if err := c.Join(ctx, lobby); err != nil {
		return true, err
	}
	return true, nil
}

// Persist writes the current board to the session store.
func (c *Client) Persist(ctx context.Context) {
	if !c.Started() {
		return
	}
	c.persist(ctx, c.engine.Current())
}

func (c *Client) persist(ctx context.Context, snap domain.Snapshot) {
	if c.store == nil || c.player == "" {
		return
	}
	lobby, ok := c.Lobby()
	if !ok {
		return
	}
	sess := sessionstore.Session{
		LobbyID:   lobby.ID,
		LobbyCode: lobby.Code,
		Started:   c.Started(),
		Board:     boardcodec.Encode(snap),
	}
	if err := c.store.Save(ctx, c.player, sess); err != nil {
		c.logger.Warn("session_save_failed", zap.String("player_id", c.player), zap.Error(err))
	}
}

// saveBoard refreshes only the cached board; the session record itself was
// written on join.
func (c *Client) saveBoard(ctx context.Context, snap domain.Snapshot) {
	if c.store == nil || c.player == "" {
		return
	}
	if err := c.store.SaveBoard(ctx, c.player, boardcodec.Encode(snap)); err != nil {
		c.logger.Warn("session_save_failed", zap.String("player_id", c.player), zap.Error(err))
	}
}
