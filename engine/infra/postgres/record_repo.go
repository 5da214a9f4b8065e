package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tubechat/tubechat/engine/core"
	"github.com/tubechat/tubechat/engine/transcript"
)

const (
	transcriptsTable   = "transcripts"
	videoRequestsTable = "video_requests"
	defaultListLimit   = 50
)

var ErrRecordNotFound = core.NewError(core.KindNotFound, "transcript record not found", nil)

// DB is the minimal database interface the repositories depend on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var recordColumns = []string{
	"video_id",
	"title",
	"duration",
	"thumbnail_url",
	"transcript_plain",
	"transcript_timed",
	"transcript_blocks",
	"summary",
	"processed_at",
}

// recordRow mirrors the transcripts table; blocks stay raw JSONB until decoded.
type recordRow struct {
	VideoID          string    `db:"video_id"`
	Title            string    `db:"title"`
	Duration         int       `db:"duration"`
	ThumbnailURL     string    `db:"thumbnail_url"`
	TranscriptPlain  string    `db:"transcript_plain"`
	TranscriptTimed  string    `db:"transcript_timed"`
	TranscriptBlocks []byte    `db:"transcript_blocks"`
	Summary          string    `db:"summary"`
	ProcessedAt      time.Time `db:"processed_at"`
}

func (r *recordRow) toRecord() (*transcript.Record, error) {
	rec := &transcript.Record{
		VideoID:         r.VideoID,
		Title:           r.Title,
		Duration:        r.Duration,
		ThumbnailURL:    r.ThumbnailURL,
		TranscriptPlain: r.TranscriptPlain,
		TranscriptTimed: r.TranscriptTimed,
		Summary:         r.Summary,
		ProcessedAt:     r.ProcessedAt,
	}
	rec.TranscriptBlocks = []transcript.TimeBlock{}
	if len(r.TranscriptBlocks) > 0 {
		if err := json.Unmarshal(r.TranscriptBlocks, &rec.TranscriptBlocks); err != nil {
			return nil, fmt.Errorf("decode transcript blocks for %s: %w", r.VideoID, err)
		}
	}
	return rec, nil
}

// RecordRepo persists transcript records.
type RecordRepo struct {
	db DB
}

func NewRecordRepo(db DB) *RecordRepo {
	return &RecordRepo{db: db}
}

func selectRecordBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select(recordColumns...).
		From(transcriptsTable).
		PlaceholderFormat(squirrel.Dollar)
}

// Upsert inserts or replaces the record for its video.
func (r *RecordRepo) Upsert(ctx context.Context, rec *transcript.Record) error {
	if rec == nil || rec.VideoID == "" {
		return errors.New("postgres: record with video id is required")
	}
	blocks := rec.TranscriptBlocks
	if blocks == nil {
		blocks = []transcript.TimeBlock{}
	}
	blocksJSON, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode transcript blocks: %w", err)
	}
	processedAt := rec.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	query, args, err := squirrel.
		Insert(transcriptsTable).
		Columns(recordColumns...).
		Values(
			rec.VideoID,
			rec.Title,
			rec.Duration,
			rec.ThumbnailURL,
			rec.TranscriptPlain,
			rec.TranscriptTimed,
			blocksJSON,
			rec.Summary,
			processedAt,
		).
		Suffix(`ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			duration = EXCLUDED.duration,
			thumbnail_url = EXCLUDED.thumbnail_url,
			transcript_plain = EXCLUDED.transcript_plain,
			transcript_timed = EXCLUDED.transcript_timed,
			transcript_blocks = EXCLUDED.transcript_blocks,
			summary = EXCLUDED.summary,
			processed_at = EXCLUDED.processed_at`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert transcript %s: %w", rec.VideoID, err)
	}
	return nil
}

func (r *RecordRepo) Get(ctx context.Context, videoID string) (*transcript.Record, error) {
	query, args, err := selectRecordBuilder().Where(squirrel.Eq{"video_id": videoID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var row recordRow
	if err := pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, videoID)
		}
		return nil, fmt.Errorf("get transcript %s: %w", videoID, err)
	}
	return row.toRecord()
}

// List returns the most recently processed records.
func (r *RecordRepo) List(ctx context.Context, limit int) ([]*transcript.Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query, args, err := selectRecordBuilder().
		OrderBy("processed_at DESC").
		Limit(uint64(limit)). // #nosec G115 -- positive
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	var rows []recordRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	out := make([]*transcript.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RecordRepo) Delete(ctx context.Context, videoID string) error {
	query, args, err := squirrel.
		Delete(transcriptsTable).
		Where(squirrel.Eq{"video_id": videoID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete transcript %s: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, videoID)
	}
	return nil
}

// TrackRequest remembers that a user asked for a video.
func (r *RecordRepo) TrackRequest(ctx context.Context, videoID, userID string) error {
	if userID == "" {
		return nil
	}
	query, args, err := squirrel.
		Insert(videoRequestsTable).
		Columns("video_id", "user_id").
		Values(videoID, userID).
		Suffix("ON CONFLICT (video_id, user_id) DO UPDATE SET requested_at = now()").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build request insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("track request for %s: %w", videoID, err)
	}
	return nil
}
