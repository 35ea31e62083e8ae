// Package clientbuilder assembles a board client from configuration.
package clientbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-board-client/internal/boardclient"
	"github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/gateway"
	"github.com/park285/cheese-board-client/internal/journal"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/park285/cheese-board-client/internal/obslog"
	"github.com/park285/cheese-board-client/internal/sessionstore"
	"github.com/park285/cheese-board-client/internal/subscription"
	"go.uber.org/zap"
)

type Deps struct {
	Client   *boardclient.Client
	Gateway  gateway.Gateway
	Push     *gateway.PushChannel
	Bridge   *subscription.Bridge
	Store    *sessionstore.Store
	Journal  journal.Repository
	Recorder *journal.Recorder
	Messages *msgcat.Catalog

	logger  *zap.Logger
	closers []func(context.Context) error
}

// New wires every component. Redis and Postgres are optional: without
// REDIS_URL nothing is cached, without DATABASE_URL the journal stays in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger = obslog.Or(logger)
	d := &Deps{logger: logger}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d.Messages = msgs

	headers := headerProvider(cfg)
	httpClient := gateway.NewClient(cfg.GameBaseURL,
		gateway.WithHeaderProvider(headers),
		gateway.WithTimeout(cfg.JoinTimeout),
	)
	d.Gateway = gateway.NewLogged(httpClient, logger.Named("gateway"))

	opts := []boardclient.Option{
		boardclient.WithLogger(logger),
		boardclient.WithJoinTimeout(cfg.JoinTimeout),
		boardclient.WithMoveTimeout(cfg.MoveTimeout),
	}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := sessionstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
		d.Store = store
		d.closers = append(d.closers, func(context.Context) error { return store.Close() })
		opts = append(opts, boardclient.WithStore(store, cfg.PlayerID))
	}
	d.Client = boardclient.New(d.Gateway, opts...)

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := journal.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			d.Close(ctx)
			return nil, fmt.Errorf("init journal: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			d.Close(ctx)
			return nil, fmt.Errorf("journal schema: %w", err)
		}
		d.Journal = repo
		d.closers = append(d.closers, func(context.Context) error { return repo.Close() })
	} else {
		d.Journal = journal.NewMemoryRepository()
	}
	d.Recorder = journal.NewRecorder(d.Journal, d.Client.JournalKey(), 0, logger.Named("journal"))
	d.Client.Engine().Observe(d.Recorder)
	// the recorder must drain before the repositories close
	d.closers = append([]func(context.Context) error{d.Recorder.Close}, d.closers...)

	d.Push = gateway.NewPushChannel(cfg.GamePushURL, cfg.PushMaxReconnects, cfg.PushReconnectDelay,
		gateway.WithPushHeaders(headers),
		gateway.WithPushLogger(logger.Named("push")),
	)
	d.Bridge = subscription.NewBridge(d.Client.Engine(), d.Client, logger.Named("bridge"))
	d.Bridge.OnKicked = d.Client.HandleKicked

	return d, nil
}

// Start runs the event loop until ctx ends and subscribes to the push channel.
// A failed first dial is returned, but the loop keeps running: the channel
// retries in the background and its events still reach the bridge.
func (d *Deps) Start(ctx context.Context) error {
	go func() {
		if err := d.Bridge.Run(ctx, d.Push.Events()); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("bridge_stopped", zap.Error(err))
		}
	}()
	if err := d.Push.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe push: %w", err)
	}
	return nil
}

// Close stops the push channel, flushes the journal and closes storage.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.Push != nil {
		if err := d.Push.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.Client != nil {
		d.Client.Persist(ctx)
	}
	for _, c := range d.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func headerProvider(cfg *config.AppConfig) gateway.HeaderProvider {
	player := cfg.PlayerID
	token := cfg.AuthToken
	return func() map[string]string {
		h := map[string]string{"X-Player-Id": player}
		if token != "" {
			h["Authorization"] = "Bearer " + token
		}
		return h
	}
}
