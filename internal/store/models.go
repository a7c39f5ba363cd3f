// Package store persists external units, their media and the import journal.
package store

import (
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// MediaStatusReady is the status of every imported row.
const MediaStatusReady = "ready"

// ExternalUnit is a unit listed by an external partner. SheetRowID ties it to
// a row of the inventory spreadsheet.
type ExternalUnit struct {
	ID              uuid.UUID `db:"id"`
	SheetRowID      *string   `db:"sheet_row_id"`
	UnitNumber      string    `db:"unit_number"`
	CondominiumName string    `db:"condominium_name"`
}

// ExternalUnitMedia is one imported photo or video. Rows are owned by their
// unit and recreated on every import.
type ExternalUnitMedia struct {
	ID              uuid.UUID `db:"id"`
	UnitID          uuid.UUID `db:"unit_id"`
	MediaType       MediaType `db:"media_type"`
	DriveFileID     string    `db:"drive_file_id"`
	DriveWebViewURL string    `db:"drive_web_view_url"`
	ThumbnailURL    string    `db:"thumbnail_url"`
	FileName        string    `db:"file_name"`
	MimeType        string    `db:"mime_type"`
	FileSize        int64     `db:"file_size"`
	Status          string    `db:"status"`
	DisplayOrder    int       `db:"display_order"`
	IsCover         bool      `db:"is_cover"`
	IsHidden        bool      `db:"is_hidden"`
	ManualLabel     *string   `db:"manual_label"`
	ProcessedAt     time.Time `db:"processed_at"`
}
