package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/drive-media-sync/internal/blob"
	"github.com/tendant/drive-media-sync/internal/store"
	"github.com/tendant/drive-media-sync/pkg/schema"
)

// cleanup deletes the stored thumbnail of every media row, best effort, then
// removes every media row in one statement.
func (p *Pipeline) cleanup(ctx context.Context, runID uuid.UUID, logger *slog.Logger) (*CleanupSummary, error) {
	rows, err := p.repo.ListMedia(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	logger.Info("cleanup starting", "media_rows", len(rows))

	summary := &CleanupSummary{MediaRows: len(rows)}
	if err := p.deleteThumbnails(ctx, rows, summary, logger); err != nil {
		return summary, err
	}

	n, err := p.repo.DeleteAllMedia(ctx)
	if err != nil {
		return summary, fmt.Errorf("delete media rows: %w", err)
	}
	summary.RowsDeleted = n

	logger.Info("cleanup complete",
		"media_rows", summary.MediaRows,
		"blobs_deleted", summary.Deleted,
		"blobs_not_found", summary.NotFound,
		"blobs_failed", summary.Failed,
		"external", summary.External,
		"rows_deleted", summary.RowsDeleted,
	)
	p.publish(p.cfg.EventSubject+schema.SubjectCleanupSuffix, schema.CleanupCompleted{
		RunID:       runID.String(),
		MediaRows:   summary.MediaRows,
		Deleted:     summary.Deleted,
		NotFound:    summary.NotFound,
		Failed:      summary.Failed,
		RowsDeleted: summary.RowsDeleted,
		HappenedAt:  p.now().Unix(),
	})
	return summary, nil
}

// wipeUnit removes the thumbnails and rows left for one unit by an
// interrupted run.
func (p *Pipeline) wipeUnit(ctx context.Context, unitID uuid.UUID, logger *slog.Logger) (*CleanupSummary, error) {
	rows, err := p.repo.ListUnitMedia(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list unit media: %w", err)
	}
	summary := &CleanupSummary{MediaRows: len(rows)}
	if err := p.deleteThumbnails(ctx, rows, summary, logger); err != nil {
		return summary, err
	}
	n, err := p.repo.DeleteUnitMedia(ctx, unitID)
	if err != nil {
		return summary, fmt.Errorf("delete unit media rows: %w", err)
	}
	summary.RowsDeleted = n
	return summary, nil
}

// deleteThumbnails deletes the stored thumbnail of each row, best effort.
// Rows whose thumbnail lives outside the bucket are only counted.
func (p *Pipeline) deleteThumbnails(ctx context.Context, rows []store.ExternalUnitMedia, summary *CleanupSummary, logger *slog.Logger) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		objectPath, ok := p.blobs.ObjectPath(row.ThumbnailURL)
		if !ok {
			summary.External++
			continue
		}
		outcome, err := blob.DeleteIfExists(ctx, p.blobs, objectPath)
		if err != nil {
			logger.Warn("delete thumbnail failed", "unit_id", row.UnitID.String(), "path", objectPath, "err", err)
		}
		summary.record(outcome)
		if p.metrics != nil {
			p.metrics.BlobDelete(outcome.String())
		}
	}
	return nil
}
