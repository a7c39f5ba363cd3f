package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

func newTestGoogleSource(t *testing.T, handler http.HandlerFunc) *GoogleSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewGoogleSource(svc)
}

func TestGoogleSourceValues(t *testing.T) {
	var gotPath, gotRender string
	g := newTestGoogleSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRender = r.URL.Query().Get("valueRenderOption")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"range": "Sheet1!A2:AA4",
			"majorDimension": "ROWS",
			"values": [["Torre Norte", "1203"], [], ["Torre Sul", 88]]
		}`))
	})

	rows, err := g.Values(context.Background(), "sheet-id", "Sheet1!A2:AA")
	require.NoError(t, err)
	assert.Equal(t, "/v4/spreadsheets/sheet-id/values/Sheet1!A2:AA", gotPath)
	assert.Equal(t, "FORMATTED_VALUE", gotRender)
	assert.Equal(t, [][]string{{"Torre Norte", "1203"}, {}, {"Torre Sul", "88"}}, rows)
}

func TestGoogleSourceNotesKeyedBySheetRow(t *testing.T) {
	var gotQuery map[string][]string
	g := newTestGoogleSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		// startRow is 0-based: the first entry is sheet row 42. The gaps
		// are rows whose cell carries no note.
		_, _ = w.Write([]byte(`{"sheets": [{"data": [{
			"startRow": 41,
			"rowData": [
				{"values": [{"note": "https://drive.google.com/drive/folders/ABC123"}]},
				null,
				{},
				{"values": [null]},
				{"values": [{"note": "https://drive.google.com/drive/folders/XYZ"}]}
			]
		}]}]}`))
	})

	notes, err := g.Notes(context.Background(), "sheet-id", "Sheet1!Z42:Z46")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{
		42: "https://drive.google.com/drive/folders/ABC123",
		46: "https://drive.google.com/drive/folders/XYZ",
	}, notes)

	assert.Equal(t, []string{"Sheet1!Z42:Z46"}, gotQuery["ranges"])
	assert.Equal(t, []string{"true"}, gotQuery["includeGridData"])
	assert.Equal(t, []string{notesFields}, gotQuery["fields"])
}

func TestGoogleSourceNotesDefaultStartRow(t *testing.T) {
	g := newTestGoogleSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sheets": [{"data": [{"rowData": [{"values": [{"note": "first"}]}]}]}]}`))
	})

	notes, err := g.Notes(context.Background(), "sheet-id", "Sheet1!Z1:Z")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "first"}, notes)
}

func TestGoogleSourceAPIError(t *testing.T) {
	g := newTestGoogleSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission"}}`))
	})

	_, err := g.Values(context.Background(), "sheet-id", "Sheet1!A2:AA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission")
}
