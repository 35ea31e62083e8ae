package journal

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/park285/cheese-board-client/internal/boardcodec"
	"github.com/park285/cheese-board-client/internal/boardsync"
	"go.uber.org/zap/zaptest"
)

type fixedSession string

func (s fixedSession) SessionID() (string, bool) { return string(s), s != "" }

func TestMemoryRecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := repo.Record(ctx, Entry{SessionID: "s1", Seq: uint64(i), Source: "push"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	_ = repo.Record(ctx, Entry{SessionID: "s2", Seq: 9})

	got, err := repo.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 3 || got[1].Seq != 2 {
		t.Fatalf("unexpected entries %+v", got)
	}
	if got[0].ID == 0 || got[0].RecordedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled")
	}
	if err := repo.Record(ctx, Entry{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRecorderWritesEveryReplacementInOrder(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(repo, fixedSession("s1"), 16, zaptest.NewLogger(t))

	engine := boardsync.NewEngine(zaptest.NewLogger(t))
	engine.Observe(rec)
	engine.Replace(boardsync.SourceJoin, boardcodec.Starting())
	moved, err := boardcodec.Decode("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	engine.Replace(boardsync.SourceMove, moved)
	engine.Replace(boardsync.SourcePush, boardcodec.Starting())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, _ := repo.Recent(context.Background(), "s1", 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	wantSources := []string{"push", "move", "join"}
	for i, e := range got {
		if e.Source != wantSources[i] || e.Seq != uint64(3-i) {
			t.Fatalf("entry %d: %+v", i, e)
		}
	}
	if got[1].Board != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" || got[1].Pieces != 32 {
		t.Fatalf("unexpected move entry %+v", got[1])
	}
}

func TestRecorderSkipsWithoutSession(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(repo, fixedSession(""), 4, nil)
	rec.Observed(boardsync.Replacement{Seq: 1, Source: boardsync.SourceJoin, Snapshot: boardcodec.Starting()})
	_ = rec.Close(context.Background())
	if got, _ := repo.Recent(context.Background(), "", 0); len(got) != 0 {
		t.Fatalf("nothing should be recorded without a session")
	}
}

type blockingRepo struct{ release chan struct{} }

func (b *blockingRepo) Record(ctx context.Context, e Entry) error {
	<-b.release
	return nil
}

func (b *blockingRepo) Recent(context.Context, string, int) ([]Entry, error) { return nil, nil }

func TestRecorderDropsWhenFull(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	rec := NewRecorder(repo, fixedSession("s1"), 1, zaptest.NewLogger(t))
	for i := 1; i <= 5; i++ {
		rec.Observed(boardsync.Replacement{Seq: uint64(i), Source: boardsync.SourcePush, Snapshot: boardcodec.Starting()})
	}
	if rec.Dropped() == 0 {
		t.Fatalf("expected drops with a full buffer")
	}
	close(repo.release)
	_ = rec.Close(context.Background())
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(dsn)
	if err != nil {
		t.Fatalf("NewPostgresRepository: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	sid := "test-" + time.Now().Format("150405.000000")
	for i := 1; i <= 2; i++ {
		e := Entry{SessionID: sid, Seq: uint64(i), Source: "push", Board: boardcodec.Encode(boardcodec.Starting()), Pieces: 32}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := repo.Recent(ctx, sid, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Seq != 2 {
		t.Fatalf("unexpected entries %+v", got)
	}
}
