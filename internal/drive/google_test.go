package drive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newTestGoogleLister(t *testing.T, handler http.HandlerFunc) *GoogleLister {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := driveapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewGoogleLister(svc)
}

func TestGoogleListerFollowsPages(t *testing.T) {
	var tokens []string
	g := newTestGoogleLister(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "'ABC123' in parents and trashed=false", q.Get("q"))
		assert.Equal(t, "true", q.Get("supportsAllDrives"))
		assert.Equal(t, "true", q.Get("includeItemsFromAllDrives"))
		assert.Equal(t, listFields, q.Get("fields"))
		tokens = append(tokens, q.Get("pageToken"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(`{
				"nextPageToken": "page-2",
				"files": [
					{"id": "f1", "name": "sala.jpg", "mimeType": "image/jpeg", "size": "2048", "webViewLink": "https://drive.google.com/file/d/f1/view"},
					{"id": "f2", "name": "tour.mp4", "mimeType": "video/mp4", "size": "1048576"}
				]
			}`))
		case "page-2":
			_, _ = w.Write([]byte(`{"files": [{"id": "f3", "name": "cozinha.png", "mimeType": "image/png", "size": "512"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	files, err := g.ListFolder(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "page-2"}, tokens)
	require.Len(t, files, 3)
	assert.Equal(t, File{
		ID:          "f1",
		Name:        "sala.jpg",
		MimeType:    "image/jpeg",
		Size:        2048,
		WebViewLink: "https://drive.google.com/file/d/f1/view",
	}, files[0])
	assert.Equal(t, "f2", files[1].ID)
	assert.Equal(t, int64(1048576), files[1].Size)
	assert.Equal(t, "f3", files[2].ID)
}

func TestGoogleListerEscapesFolderID(t *testing.T) {
	var gotQ string
	g := newTestGoogleLister(t, func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files": []}`))
	})

	files, err := g.ListFolder(context.Background(), "it's")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, `'it\'s' in parents and trashed=false`, gotQ)
}

func TestGoogleListerListError(t *testing.T) {
	g := newTestGoogleLister(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "File not found: ABC123."}}`))
	})

	_, err := g.ListFolder(context.Background(), "ABC123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list folder ABC123")
}

func TestGoogleListerDownload(t *testing.T) {
	g := newTestGoogleLister(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	body, err := g.Download(context.Background(), "f1")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}
