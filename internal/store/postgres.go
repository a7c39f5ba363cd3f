package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/drive-media-sync/internal/process"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is the pgx-backed repository and journal.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates any missing table. Existing tables are left untouched.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const mediaColumns = `id, unit_id, media_type, drive_file_id, drive_web_view_url, thumbnail_url,
	file_name, mime_type, file_size, status, display_order, is_cover, is_hidden, manual_label, processed_at`

func (p *Postgres) ListLinkedUnits(ctx context.Context) ([]ExternalUnit, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, sheet_row_id, COALESCE(unit_number, '') AS unit_number,
		       COALESCE(condominium_name, '') AS condominium_name
		FROM external_units
		WHERE sheet_row_id IS NOT NULL
		ORDER BY condominium_name, unit_number, id`)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	units, err := pgx.CollectRows(rows, pgx.RowToStructByName[ExternalUnit])
	if err != nil {
		return nil, fmt.Errorf("scan units: %w", err)
	}
	return units, nil
}

func (p *Postgres) ListMedia(ctx context.Context) ([]ExternalUnitMedia, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+mediaColumns+` FROM external_unit_media ORDER BY unit_id, display_order`)
	if err != nil {
		return nil, fmt.Errorf("query media: %w", err)
	}
	media, err := pgx.CollectRows(rows, pgx.RowToStructByName[ExternalUnitMedia])
	if err != nil {
		return nil, fmt.Errorf("scan media: %w", err)
	}
	return media, nil
}

func (p *Postgres) ListUnitMedia(ctx context.Context, unitID uuid.UUID) ([]ExternalUnitMedia, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+mediaColumns+` FROM external_unit_media WHERE unit_id = $1 ORDER BY display_order`, unitID)
	if err != nil {
		return nil, fmt.Errorf("query media for unit %s: %w", unitID, err)
	}
	media, err := pgx.CollectRows(rows, pgx.RowToStructByName[ExternalUnitMedia])
	if err != nil {
		return nil, fmt.Errorf("scan media for unit %s: %w", unitID, err)
	}
	return media, nil
}

func (p *Postgres) DeleteAllMedia(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM external_unit_media`)
	if err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) DeleteUnitMedia(ctx context.Context, unitID uuid.UUID) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM external_unit_media WHERE unit_id = $1`, unitID)
	if err != nil {
		return 0, fmt.Errorf("delete media for unit %s: %w", unitID, err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) InsertMedia(ctx context.Context, m *ExternalUnitMedia) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO external_unit_media (`+mediaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		m.ID, m.UnitID, m.MediaType, m.DriveFileID, m.DriveWebViewURL, m.ThumbnailURL,
		m.FileName, m.MimeType, m.FileSize, m.Status, m.DisplayOrder, m.IsCover, m.IsHidden,
		m.ManualLabel, m.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert media %s: %w", m.DriveFileID, err)
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, r *process.Run) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO media_import_runs (id, kind, status, started_at, finished_at, error, cleanup_done)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Kind, r.Status, r.StartedAt, r.FinishedAt, r.Error, r.CleanupDone)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateRun(ctx context.Context, r *process.Run) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE media_import_runs SET status = $2, finished_at = $3, error = $4, cleanup_done = $5
		WHERE id = $1`,
		r.ID, r.Status, r.FinishedAt, r.Error, r.CleanupDone)
	if err != nil {
		return fmt.Errorf("update run %s: %w", r.ID, err)
	}
	return nil
}

// LatestRun returns the most recently started run of kind, or nil.
func (p *Postgres) LatestRun(ctx context.Context, kind string) (*process.Run, error) {
	var r process.Run
	err := p.pool.QueryRow(ctx, `
		SELECT id, kind, status, started_at, finished_at, error, cleanup_done
		FROM media_import_runs WHERE kind = $1
		ORDER BY started_at DESC LIMIT 1`, kind).
		Scan(&r.ID, &r.Kind, &r.Status, &r.StartedAt, &r.FinishedAt, &r.Error, &r.CleanupDone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	return &r, nil
}

func (p *Postgres) RecordUnit(ctx context.Context, u process.UnitResult) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO media_import_run_units (run_id, unit_id, status, photos, videos, bytes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, unit_id) DO UPDATE
		SET status = EXCLUDED.status, photos = EXCLUDED.photos, videos = EXCLUDED.videos,
		    bytes = EXCLUDED.bytes, completed_at = EXCLUDED.completed_at`,
		u.RunID, u.UnitID, u.Status, u.Photos, u.Videos, u.Bytes, u.CompletedAt)
	if err != nil {
		return fmt.Errorf("record unit %s: %w", u.UnitID, err)
	}
	return nil
}

func (p *Postgres) CompletedUnits(ctx context.Context, runID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT unit_id FROM media_import_run_units WHERE run_id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("query completed units: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan completed units: %w", err)
	}
	done := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}
