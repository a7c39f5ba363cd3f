package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// fakeBucket answers object get and delete requests for one bucket.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]bool
	deletes []string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const prefix = "/b/test-bucket/o/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusBadRequest)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, prefix)

	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if !b.objects[name] {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "No such object: test-bucket/` + name + `"}}`))
		return
	}
	switch r.Method {
	case http.MethodGet:
		_, _ = w.Write([]byte(`{"name": "` + name + `"}`))
	case http.MethodDelete:
		delete(b.objects, name)
		b.deletes = append(b.deletes, name)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGCS(t *testing.T, objects ...string) (*GCS, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: make(map[string]bool)}
	for _, o := range objects {
		bucket.objects[o] = true
	}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	svc, err := storage.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewGCS(svc, "test-bucket"), bucket
}

func TestGCSDeleteMissingObject(t *testing.T) {
	g, _ := newTestGCS(t)
	ctx := context.Background()

	exists, err := g.Exists(ctx, "external-units/u/media/photo_gone.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	err = g.Delete(ctx, "external-units/u/media/photo_gone.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	outcome, err := DeleteIfExists(ctx, g, "external-units/u/media/photo_gone.jpg")
	require.NoError(t, err)
	assert.Equal(t, NotFound, outcome)
}

func TestGCSDeleteIfExists(t *testing.T) {
	const name = "external-units/u/media/photo_a.jpg"
	g, bucket := newTestGCS(t, name)

	outcome, err := DeleteIfExists(context.Background(), g, name)
	require.NoError(t, err)
	assert.Equal(t, Deleted, outcome)
	assert.Equal(t, []string{name}, bucket.deletes)

	outcome, err = DeleteIfExists(context.Background(), g, name)
	require.NoError(t, err)
	assert.Equal(t, NotFound, outcome)
}
