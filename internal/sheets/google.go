package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const notesFields = "sheets(data(startRow,rowData(values(note))))"

// GoogleSource reads ranges through the Sheets v4 API.
type GoogleSource struct {
	svc *sheetsapi.Service
}

func NewGoogleSource(svc *sheetsapi.Service) *GoogleSource {
	return &GoogleSource{svc: svc}
}

func (g *GoogleSource) Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, a1Range).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

func (g *GoogleSource) Notes(ctx context.Context, spreadsheetID, a1Range string) (map[int]string, error) {
	resp, err := g.svc.Spreadsheets.Get(spreadsheetID).
		Ranges(a1Range).
		IncludeGridData(true).
		Fields(googleapi.Field(notesFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	notes := make(map[int]string)
	for _, sheet := range resp.Sheets {
		for _, grid := range sheet.Data {
			for i, row := range grid.RowData {
				if row == nil || len(row.Values) == 0 || row.Values[0] == nil {
					continue
				}
				if note := row.Values[0].Note; note != "" {
					// StartRow is 0-based.
					notes[int(grid.StartRow)+i+1] = note
				}
			}
		}
	}
	return notes, nil
}
