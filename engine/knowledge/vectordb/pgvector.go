package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
)

// DB is the subset of pgxpool.Pool used by the pgvector store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const defaultChunkTable = "transcript_chunks"

type pgStore struct {
	db         DB
	table      string
	tableIdent string
	indexIdent string
	dimension  int
	ensureIdx  bool
}

// NewPGStore creates the chunk table (and its ivfflat index when enabled) on db.
func NewPGStore(ctx context.Context, db DB, cfg *Config) (Store, error) {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultChunkTable
	}
	store := &pgStore{
		db:         db,
		table:      table,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		indexIdent: pgx.Identifier{table + "_embedding_idx"}.Sanitize(),
		dimension:  cfg.Dimension,
		ensureIdx:  cfg.EnsureIndex,
	}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *pgStore) ensureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		chunk_id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		start_sec INTEGER NOT NULL,
		end_sec INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.dimension)
	if _, err := p.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	createVideoIdx := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (video_id)",
		pgx.Identifier{p.table + "_video_idx"}.Sanitize(),
		p.tableIdent,
	)
	if _, err := p.db.Exec(ctx, createVideoIdx); err != nil {
		return fmt.Errorf("pgvector: create video index: %w", err)
	}
	if p.ensureIdx {
		createIndex := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops)",
			p.indexIdent,
			p.tableIdent,
		)
		if _, err := p.db.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("pgvector: create index: %w", err)
		}
	}
	return nil
}

func (p *pgStore) Upsert(ctx context.Context, chunks []Chunk) (err error) {
	if len(chunks) == 0 {
		return nil
	}
	tx, txErr := p.db.Begin(ctx)
	if txErr != nil {
		return fmt.Errorf("pgvector: begin tx: %w", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()
	stmt := fmt.Sprintf(`INSERT INTO %s (chunk_id, video_id, user_id, start_sec, end_sec, text, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (chunk_id) DO UPDATE SET
    video_id = excluded.video_id,
    user_id = excluded.user_id,
    start_sec = excluded.start_sec,
    end_sec = excluded.end_sec,
    text = excluded.text,
    embedding = excluded.embedding,
    updated_at = excluded.updated_at`, p.tableIdent)
	for i := range chunks {
		c := chunks[i]
		if len(c.Embedding) != p.dimension {
			return fmt.Errorf("%w: chunk %q got %d want %d", ErrDimensionMismatch, c.ID, len(c.Embedding), p.dimension)
		}
		if _, execErr := tx.Exec(
			ctx, stmt,
			c.ID, c.VideoID, c.UserID, c.StartSec, c.EndSec, c.Text,
			pgvector.NewVector(c.Embedding), time.Now().UTC(),
		); execErr != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", c.ID, execErr)
		}
	}
	return nil
}

func (p *pgStore) Search(ctx context.Context, videoID string, query []float32, opts SearchOptions) ([]Match, error) {
	if videoID == "" {
		return nil, errMissingVideoID
	}
	if len(query) != p.dimension {
		return nil, fmt.Errorf("%w: query got %d want %d", ErrDimensionMismatch, len(query), p.dimension)
	}
	topK := topKOrDefault(opts.TopK)
	builder := strings.Builder{}
	builder.WriteString("SELECT chunk_id, video_id, user_id, start_sec, end_sec, text, ")
	builder.WriteString("1 - (embedding <=> $1) AS score FROM ")
	builder.WriteString(p.tableIdent)
	builder.WriteString(" WHERE video_id = $2")
	args := []any{pgvector.NewVector(query), videoID}
	argPos := 3
	if opts.MinScore > 0 {
		builder.WriteString(fmt.Sprintf(" AND 1 - (embedding <=> $1) >= $%d", argPos))
		args = append(args, opts.MinScore)
		argPos++
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY embedding <=> $1 ASC LIMIT $%d", argPos))
	args = append(args, topK)
	rows, err := p.db.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()
	results := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.VideoID, &m.UserID, &m.StartSec, &m.EndSec, &m.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return results, nil
}

func (p *pgStore) Count(ctx context.Context, videoID string) (int, error) {
	if videoID == "" {
		return 0, errMissingVideoID
	}
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE video_id = $1", p.tableIdent)
	if err := p.db.QueryRow(ctx, query, videoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return n, nil
}

func (p *pgStore) ListByVideo(ctx context.Context, videoID string) ([]Chunk, error) {
	if videoID == "" {
		return nil, errMissingVideoID
	}
	query := fmt.Sprintf(
		"SELECT chunk_id, video_id, user_id, start_sec, end_sec, text FROM %s WHERE video_id = $1 ORDER BY start_sec ASC",
		p.tableIdent,
	)
	rows, err := p.db.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("pgvector: list: %w", err)
	}
	defer rows.Close()
	chunks := make([]Chunk, 0)
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.VideoID, &c.UserID, &c.StartSec, &c.EndSec, &c.Text); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: list rows: %w", err)
	}
	return chunks, nil
}

func (p *pgStore) DeleteByVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return errMissingVideoID
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE video_id = $1", p.tableIdent)
	if _, err := p.db.Exec(ctx, query, videoID); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (p *pgStore) Close(context.Context) error {
	return nil
}
