// pkg/schema/events.go
package schema

// Subject suffixes appended to the configured base subject.
const (
	SubjectUnitSuffix    = ".unit"
	SubjectCleanupSuffix = ".cleanup"
)

type UnitImported struct {
	RunID           string `json:"run_id"`
	UnitID          string `json:"unit_id"`
	SheetRowID      string `json:"sheet_row_id"`
	UnitNumber      string `json:"unit_number,omitempty"`
	CondominiumName string `json:"condominium_name,omitempty"`
	FolderID        string `json:"folder_id"`
	Photos          int    `json:"photos"`
	Videos          int    `json:"videos"`
	FailedPhotos    int    `json:"failed_photos"`
	Bytes           int64  `json:"bytes"`
	HappenedAt      int64  `json:"happened_at"`
}

type CleanupCompleted struct {
	RunID       string `json:"run_id"`
	MediaRows   int    `json:"media_rows"`
	Deleted     int    `json:"deleted"`
	NotFound    int    `json:"not_found"`
	Failed      int    `json:"failed"`
	RowsDeleted int64  `json:"rows_deleted"`
	HappenedAt  int64  `json:"happened_at"`
}

type RunCompleted struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	Resumed          bool   `json:"resumed"`
	UnitsProcessed   int    `json:"units_processed"`
	UnitsSkipped     int    `json:"units_skipped"`
	PhotosImported   int    `json:"photos_imported"`
	VideosImported   int    `json:"videos_imported"`
	PhotosFailed     int    `json:"photos_failed"`
	StorageBytes     int64  `json:"storage_bytes"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Error            string `json:"error,omitempty"`
	HappenedAt       int64  `json:"happened_at"`
}
