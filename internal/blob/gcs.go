package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"
)

const publicHost = "https://storage.googleapis.com/"

// GCS stores objects in a Google Cloud Storage bucket through the JSON API.
type GCS struct {
	svc    *storage.Service
	bucket string
}

func NewGCS(svc *storage.Service, bucket string) *GCS {
	return &GCS{svc: svc, bucket: bucket}
}

func (g *GCS) Put(ctx context.Context, objectPath string, data []byte, opts PutOptions) (string, error) {
	ct := contentType(data, opts.ContentType)
	obj := &storage.Object{
		Name:         objectPath,
		ContentType:  ct,
		CacheControl: CacheControl,
	}
	_, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(ct)).
		PredefinedAcl("publicRead").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert gs://%s/%s: %w", g.bucket, objectPath, err)
	}
	return g.publicURL(objectPath), nil
}

func (g *GCS) Exists(ctx context.Context, objectPath string) (bool, error) {
	_, err := g.svc.Objects.Get(g.bucket, objectPath).Fields("name").Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (g *GCS) Delete(ctx context.Context, objectPath string) error {
	err := g.svc.Objects.Delete(g.bucket, objectPath).Context(ctx).Do()
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (g *GCS) ObjectPath(publicURL string) (string, bool) {
	prefix := publicHost + g.bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func (g *GCS) publicURL(objectPath string) string {
	return publicHost + g.bucket + "/" + (&url.URL{Path: objectPath}).EscapedPath()
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
