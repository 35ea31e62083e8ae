package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS board_replacements (
    id          BIGSERIAL PRIMARY KEY,
    session_id  TEXT        NOT NULL,
    seq         BIGINT      NOT NULL,
    source      TEXT        NOT NULL,
    board       TEXT        NOT NULL,
    pieces      INTEGER     NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS board_replacements_session_idx
    ON board_replacements (session_id, recorded_at DESC);`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the journal table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *PostgresRepository) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrNoSession
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	const q = `INSERT INTO board_replacements (session_id, seq, source, board, pieces, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.ExecContext(ctx, q, e.SessionID, int64(e.Seq), e.Source, e.Board, e.Pieces, e.RecordedAt.UTC())
	return err
}

func (r *PostgresRepository) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, session_id, seq, source, board, pieces, recorded_at
        FROM board_replacements
        WHERE session_id = $1
        ORDER BY recorded_at DESC, id DESC
        LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e   Entry
			seq int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &seq, &e.Source, &e.Board, &e.Pieces, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		out = append(out, e)
	}
	return out, rows.Err()
}
