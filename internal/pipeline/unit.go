package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/drive-media-sync/internal/blob"
	"github.com/tendant/drive-media-sync/internal/drive"
	"github.com/tendant/drive-media-sync/internal/driveurl"
	"github.com/tendant/drive-media-sync/internal/img"
	"github.com/tendant/drive-media-sync/internal/process"
	"github.com/tendant/drive-media-sync/internal/sheets"
	"github.com/tendant/drive-media-sync/internal/store"
	"github.com/tendant/drive-media-sync/pkg/schema"
)

// importUnit rebuilds the media of one unit. It returns an error only when
// the context is done; everything else is logged and counted.
func (p *Pipeline) importUnit(ctx context.Context, run *process.Run, unit store.ExternalUnit, index map[string]sheets.DriveMediaData, wipeFirst bool) (Stats, error) {
	rowID := ""
	if unit.SheetRowID != nil {
		rowID = *unit.SheetRowID
	}
	logger := p.logger.With("run_id", run.ID.String(), "unit_id", unit.ID.String(), "sheet_row_id", rowID)

	data, ok := index[rowID]
	if !ok {
		return p.skipUnit(ctx, run, unit, logger, "no sheet row"), nil
	}
	folderURL := data.PreferredURL()
	if folderURL == "" {
		return p.skipUnit(ctx, run, unit, logger, "no drive url"), nil
	}

	if wipeFirst {
		wiped, err := p.wipeUnit(ctx, unit.ID, logger)
		if err != nil {
			if ctx.Err() != nil {
				return Stats{}, ctx.Err()
			}
			logger.Error("wipe partial unit media failed", "err", err)
			return Stats{}, nil
		}
		if wiped.RowsDeleted > 0 {
			logger.Info("wiped partial unit media",
				"rows", wiped.RowsDeleted,
				"blobs_deleted", wiped.Deleted,
				"blobs_failed", wiped.Failed,
			)
		}
	}

	media, err := p.fetcher.Fetch(ctx, folderURL)
	if err != nil {
		if ctx.Err() != nil {
			return Stats{}, ctx.Err()
		}
		if errors.Is(err, driveurl.ErrNoFolderID) {
			logger.Warn("unusable drive url", "url", folderURL)
		} else {
			logger.Warn("fetch folder failed", "url", folderURL, "err", err)
		}
		return p.skipUnit(ctx, run, unit, logger, "folder unresolved"), nil
	}
	logger = logger.With("folder_id", media.FolderID)

	delta := Stats{UnitsProcessed: 1, PhotosFailed: media.FailedPhotos}
	primary := 0
	for _, photo := range media.Photos {
		if err := ctx.Err(); err != nil {
			return delta, err
		}
		size, err := p.importPhoto(ctx, unit.ID, photo, logger)
		if err != nil {
			delta.PhotosFailed++
			p.countMedia(store.MediaTypePhoto, "failed")
			continue
		}
		delta.PhotosImported++
		delta.StorageBytes += size
		if p.cfg.Tier(photo.Index) == TierPrimary {
			primary++
		}
		p.countMedia(store.MediaTypePhoto, "imported")
	}

	for _, video := range media.Videos {
		if err := ctx.Err(); err != nil {
			return delta, err
		}
		if err := p.importVideo(ctx, unit.ID, video, media.PhotoSlots); err != nil {
			logger.Warn("insert video failed", "file_id", video.ID, "err", err)
			delta.VideosFailed++
			p.countMedia(store.MediaTypeVideo, "failed")
			continue
		}
		delta.VideosImported++
		p.countMedia(store.MediaTypeVideo, "imported")
	}

	logger.Info("unit imported",
		"photos", delta.PhotosImported,
		"primary_photos", primary,
		"videos", delta.VideosImported,
		"failed_photos", delta.PhotosFailed,
		"bytes", delta.StorageBytes,
	)
	if p.metrics != nil {
		p.metrics.Unit("processed")
		p.metrics.ThumbnailBytes(delta.StorageBytes)
	}
	p.recordUnit(ctx, process.UnitResult{
		RunID:  run.ID,
		UnitID: unit.ID,
		Status: process.UnitStatusImported,
		Photos: delta.PhotosImported,
		Videos: delta.VideosImported,
		Bytes:  delta.StorageBytes,
	}, logger)
	p.publish(p.cfg.EventSubject+schema.SubjectUnitSuffix, schema.UnitImported{
		RunID:           run.ID.String(),
		UnitID:          unit.ID.String(),
		SheetRowID:      rowID,
		UnitNumber:      data.UnitNumber,
		CondominiumName: data.CondominiumName,
		FolderID:        media.FolderID,
		Photos:          delta.PhotosImported,
		Videos:          delta.VideosImported,
		FailedPhotos:    delta.PhotosFailed,
		Bytes:           delta.StorageBytes,
		HappenedAt:      p.now().Unix(),
	})
	return delta, nil
}

// importPhoto thumbnails, uploads and records one photo, returning the stored
// thumbnail size.
func (p *Pipeline) importPhoto(ctx context.Context, unitID uuid.UUID, photo drive.Photo, logger *slog.Logger) (int64, error) {
	fileLogger := logger.With("file_id", photo.ID, "name", photo.Name)

	thumb, err := img.CoverThumbnail(photo.Data, p.cfg.Cover)
	if err != nil {
		fileLogger.Warn("thumbnail failed", "mime_type", photo.MimeType, "err", err)
		return 0, err
	}

	objectPath := blob.UnitMediaPath(unitID.String(), blob.PhotoFileName(photo.ID))
	publicURL, err := p.blobs.Put(ctx, objectPath, thumb.Data, blob.PutOptions{ContentType: img.OutputMimeType})
	if err != nil {
		fileLogger.Warn("upload thumbnail failed", "path", objectPath, "err", err)
		return 0, err
	}

	size := photo.Size
	if size <= 0 {
		size = int64(len(photo.Data))
	}
	row := &store.ExternalUnitMedia{
		ID:              uuid.New(),
		UnitID:          unitID,
		MediaType:       store.MediaTypePhoto,
		DriveFileID:     photo.ID,
		DriveWebViewURL: photo.WebViewLink,
		ThumbnailURL:    publicURL,
		FileName:        photo.Name,
		MimeType:        photo.MimeType,
		FileSize:        size,
		Status:          store.MediaStatusReady,
		DisplayOrder:    photo.Index,
		IsCover:         photo.Index == 0,
		ProcessedAt:     p.now(),
	}
	if err := p.repo.InsertMedia(ctx, row); err != nil {
		// The blob stays; the next cleanup cannot see it but the next
		// import overwrites the same path.
		fileLogger.Warn("insert photo failed", "path", objectPath, "err", err)
		return 0, err
	}
	return thumb.Size(), nil
}

func (p *Pipeline) importVideo(ctx context.Context, unitID uuid.UUID, video drive.Video, photoSlots int) error {
	return p.repo.InsertMedia(ctx, &store.ExternalUnitMedia{
		ID:              uuid.New(),
		UnitID:          unitID,
		MediaType:       store.MediaTypeVideo,
		DriveFileID:     video.ID,
		DriveWebViewURL: video.PlaybackURL,
		ThumbnailURL:    video.ThumbnailURL,
		FileName:        video.Name,
		MimeType:        video.MimeType,
		FileSize:        video.Size,
		Status:          store.MediaStatusReady,
		DisplayOrder:    photoSlots + video.Index,
		ProcessedAt:     p.now(),
	})
}

func (p *Pipeline) countMedia(t store.MediaType, outcome string) {
	if p.metrics != nil {
		p.metrics.Media(string(t), outcome)
	}
}
