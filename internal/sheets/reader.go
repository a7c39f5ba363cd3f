// Package sheets reads the unit inventory spreadsheet and resolves the Drive
// folder linked from each row.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tendant/drive-media-sync/internal/driveurl"
)

// LastColumn bounds the value range read for every row.
const LastColumn = "AA"

// Columns holds 0-based column indexes inside the A:AA value range.
type Columns struct {
	Condominium int
	UnitNumber  int
	Folder      int
	Direct      int
}

// DefaultColumns matches the inventory layout: condominium in A, unit number
// in B, the "fichas" folder cell in Z and the direct link in AA.
var DefaultColumns = Columns{Condominium: 0, UnitNumber: 1, Folder: 25, Direct: 26}

type Config struct {
	SpreadsheetID string
	SheetName     string
	// FirstRow is the 1-based row holding the first unit; rows above it are headers.
	FirstRow int
	Columns  Columns
}

// SheetRow is one spreadsheet row as read, before any URL resolution.
type SheetRow struct {
	SheetRowID      string
	UnitNumber      string
	CondominiumName string
	FolderCell      string
	FolderNote      string
	DirectCell      string
}

// DriveMediaData links a spreadsheet row to its candidate Drive folders.
type DriveMediaData struct {
	SheetRowID      string
	UnitNumber      string
	CondominiumName string
	FichasDriveURL  string
	DirectDriveURL  string
}

// PreferredURL returns the folder to import from: the fichas link when
// present, otherwise the direct link.
func (d DriveMediaData) PreferredURL() string {
	if d.FichasDriveURL != "" {
		return d.FichasDriveURL
	}
	return d.DirectDriveURL
}

// Source is the subset of the Sheets API the reader needs.
type Source interface {
	// Values returns the rows of a A1 range; row i is the i-th row of the range.
	Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	// Notes returns cell notes of a single-column range keyed by 1-based row number.
	Notes(ctx context.Context, spreadsheetID, a1Range string) (map[int]string, error)
}

type Reader struct {
	src    Source
	cfg    Config
	logger *slog.Logger
}

func NewReader(src Source, cfg Config, logger *slog.Logger) *Reader {
	if cfg.FirstRow <= 0 {
		cfg.FirstRow = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{src: src, cfg: cfg, logger: logger}
}

// ReadRows fetches the value range and the folder-column notes and zips them
// into SheetRows. Errors from the API are returned unwrapped of any retry.
func (r *Reader) ReadRows(ctx context.Context) ([]SheetRow, error) {
	valuesRange := fmt.Sprintf("%s!A%d:%s", quoteSheet(r.cfg.SheetName), r.cfg.FirstRow, LastColumn)
	values, err := r.src.Values(ctx, r.cfg.SpreadsheetID, valuesRange)
	if err != nil {
		return nil, fmt.Errorf("read values %s: %w", valuesRange, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	lastRow := r.cfg.FirstRow + len(values) - 1
	folderCol := ColumnLetter(r.cfg.Columns.Folder)
	notesRange := fmt.Sprintf("%s!%s%d:%s%d", quoteSheet(r.cfg.SheetName), folderCol, r.cfg.FirstRow, folderCol, lastRow)
	notes, err := r.src.Notes(ctx, r.cfg.SpreadsheetID, notesRange)
	if err != nil {
		return nil, fmt.Errorf("read notes %s: %w", notesRange, err)
	}
	r.logger.Info("read spreadsheet", "rows", len(values), "notes", len(notes), "sheet", r.cfg.SheetName)

	rows := make([]SheetRow, 0, len(values))
	for i, cells := range values {
		rowNumber := r.cfg.FirstRow + i
		rows = append(rows, SheetRow{
			SheetRowID:      strconv.Itoa(rowNumber),
			UnitNumber:      cell(cells, r.cfg.Columns.UnitNumber),
			CondominiumName: cell(cells, r.cfg.Columns.Condominium),
			FolderCell:      cell(cells, r.cfg.Columns.Folder),
			FolderNote:      strings.TrimSpace(notes[rowNumber]),
			DirectCell:      cell(cells, r.cfg.Columns.Direct),
		})
	}
	return rows, nil
}

// ReadMediaData reads the sheet and resolves one DriveMediaData per row that
// links to Drive.
func (r *Reader) ReadMediaData(ctx context.Context) ([]DriveMediaData, error) {
	rows, err := r.ReadRows(ctx)
	if err != nil {
		return nil, err
	}
	data := BuildMediaData(rows)
	r.logger.Info("resolved drive links", "rows", len(rows), "with_links", len(data))
	return data, nil
}

// BuildMediaData resolves folder links for rows. The folder cell value is
// searched before its note; the direct column is resolved independently.
// Rows with no row id or no link at all are dropped.
func BuildMediaData(rows []SheetRow) []DriveMediaData {
	out := make([]DriveMediaData, 0, len(rows))
	for _, row := range rows {
		if row.SheetRowID == "" {
			continue
		}
		fichas := driveurl.FirstURL(row.FolderCell, row.FolderNote)
		direct := driveurl.ExtractURL(row.DirectCell)
		if fichas == "" && direct == "" {
			continue
		}
		out = append(out, DriveMediaData{
			SheetRowID:      row.SheetRowID,
			UnitNumber:      row.UnitNumber,
			CondominiumName: row.CondominiumName,
			FichasDriveURL:  fichas,
			DirectDriveURL:  direct,
		})
	}
	return out
}

// Index keys media data by sheet row id. The first entry wins on duplicates.
func Index(data []DriveMediaData) map[string]DriveMediaData {
	idx := make(map[string]DriveMediaData, len(data))
	for _, d := range data {
		if _, ok := idx[d.SheetRowID]; !ok {
			idx[d.SheetRowID] = d
		}
	}
	return idx
}

// ColumnLetter converts a 0-based column index to its A1 letters (0 -> A, 26 -> AA).
func ColumnLetter(idx int) string {
	if idx < 0 {
		return ""
	}
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
