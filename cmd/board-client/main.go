package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"github.com/park285/cheese-board-client/internal/clientbuilder"
	appcfg "github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/domain"
	"github.com/park285/cheese-board-client/internal/move"
	"github.com/park285/cheese-board-client/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := clientbuilder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("client init error: %v", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Close(cctx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	r := &repl{deps: deps, cfg: cfg, out: os.Stdout}
	deps.Client.Engine().Observe(r)
	deps.Bridge.OnKicked = func(reason string) {
		deps.Client.HandleKicked(reason)
		r.say("status.kicked", map[string]any{"Reason": reason})
	}

	if ok, err := deps.Client.Restore(ctx, cfg.PlayerID); err != nil {
		logger.Warn("restore_failed", zap.Error(err))
	} else if ok {
		lobby, _ := deps.Client.Lobby()
		r.say("status.restored", map[string]any{"Code": lobby.Code})
	}

	if err := deps.Start(ctx); err != nil {
		logger.Warn("push_subscribe_failed", zap.Error(err))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !r.handle(ctx, line) {
				return
			}
		}
	}
}

type repl struct {
	deps *clientbuilder.Deps
	cfg  *appcfg.AppConfig
	out  io.Writer
}

func (r *repl) say(key string, data any) {
	fmt.Fprintln(r.out, r.deps.Messages.Text(key, data))
}

// Observed prints a status line for every board replacement.
func (r *repl) Observed(rep boardsync.Replacement) {
	r.say("status.board_updated", map[string]any{"Source": string(rep.Source), "Seq": rep.Seq})
}

func (r *repl) handle(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	c := r.deps.Client

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprint(r.out, r.deps.Messages.Text("help.commands", nil))
	case "join":
		if len(args) < 1 {
			r.say("help.commands", nil)
			return true
		}
		lobby := domain.LobbySession{ID: args[0]}
		if len(args) > 1 {
			lobby.Code = args[1]
		}
		if err := c.Join(ctx, lobby); err != nil {
			r.say("status.join_failed", map[string]any{"Lobby": lobby.ID, "Err": err})
			return true
		}
		r.say("status.joined", map[string]any{"Code": lobby.Code, "Pieces": c.Engine().Current().Len()})
	case "click":
		sq, ok := r.square(args)
		if !ok {
			return true
		}
		e, found := c.Scene().EntityAt(sq)
		if !found {
			c.OnMissed()
			r.say("status.cleared", nil)
			return true
		}
		c.OnEntityClicked(e.ID)
		r.say("status.selected", map[string]any{"Side": e.Piece.Side, "Kind": e.Piece.Kind, "Square": args[0]})
	case "square":
		sq, ok := r.square(args)
		if !ok {
			return true
		}
		if !c.Started() {
			r.say("status.not_joined", nil)
			return true
		}
		out, err := c.OnSquareClicked(ctx, sq)
		switch {
		case err != nil:
			r.say("status.move_failed", map[string]any{"From": out.From, "To": out.To, "Err": err})
		case out.State == move.Idle:
			r.say("status.move_idle", nil)
		default:
			r.say("status.move_applied", map[string]any{"From": out.From, "To": out.To})
		}
	case "miss":
		c.OnMissed()
		r.say("status.cleared", nil)
	case "show":
		fmt.Fprint(r.out, ascii(c.Engine().Current()))
	case "png":
		r.writePNG(ctx, args)
	case "history":
		r.history(ctx, args)
	default:
		fmt.Fprint(r.out, r.deps.Messages.Text("help.commands", nil))
	}
	return true
}

func (r *repl) square(args []string) (domain.Square, bool) {
	if len(args) < 1 {
		fmt.Fprintln(r.out, "square required, e.g. e2")
		return domain.Square{}, false
	}
	sq, err := boardcodec.DecodeSquare(strings.ToLower(args[0]))
	if err != nil {
		fmt.Fprintln(r.out, err)
		return domain.Square{}, false
	}
	return sq, true
}

func (r *repl) writePNG(ctx context.Context, args []string) {
	var hl *domain.Square
	if len(args) > 0 {
		sq, ok := r.square(args)
		if !ok {
			return
		}
		hl = &sq
	}
	data, err := r.deps.Client.Scene().RenderPNG(ctx, hl)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	dir := r.cfg.SnapshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("board-%d.png", r.deps.Client.Engine().Seq()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	r.say("status.snapshot_saved", map[string]any{"Path": path})
}

func (r *repl) history(ctx context.Context, args []string) {
	id, ok := r.deps.Client.SessionID()
	if !ok {
		r.say("status.not_joined", nil)
		return
	}
	limit := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := r.deps.Journal.Recent(ctx, id, limit)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(r.out, err)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "#%d %-7s %s %s\n", e.Seq, e.Source, e.RecordedAt.Format("15:04:05.000"), e.Board)
	}
}

func ascii(snap domain.Snapshot) string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&b, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			p, ok := snap.Piece(domain.Square{File: file, Rank: rank})
			if !ok {
				b.WriteString(". ")
				continue
			}
			b.WriteByte(boardcodec.Letter(p))
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	b.WriteString("  a b c d e f g h\n")
	return b.String()
}
