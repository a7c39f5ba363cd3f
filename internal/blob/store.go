// Package blob persists thumbnails in an object store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned by Store.Delete for a missing object.
var ErrNotFound = errors.New("object not found")

// CacheControl is applied to every uploaded object.
const CacheControl = "public, max-age=31536000"

// Store is a bucket-scoped object store.
type Store interface {
	// Put writes data at objectPath with public read access and returns the
	// public URL of the object.
	Put(ctx context.Context, objectPath string, data []byte, opts PutOptions) (string, error)
	Exists(ctx context.Context, objectPath string) (bool, error)
	Delete(ctx context.Context, objectPath string) error
	// ObjectPath maps a public URL produced by Put back to its object path.
	// ok is false for URLs outside the bucket.
	ObjectPath(publicURL string) (objectPath string, ok bool)
}

// PutOptions customises object persistence.
type PutOptions struct {
	ContentType string
}

// UnitMediaPath is the object path of a unit's media file.
func UnitMediaPath(unitID, fileName string) string {
	return path.Join("external-units", unitID, "media", path.Base(fileName))
}

// PhotoFileName derives the thumbnail file name from the Drive file id, so a
// re-import of the same source writes the same object.
func PhotoFileName(driveFileID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, driveFileID)
	return "photo_" + safe + ".jpg"
}

func contentType(data []byte, declared string) string {
	if declared != "" {
		return declared
	}
	return mimetype.Detect(data).String()
}

// DeleteOutcome classifies a best-effort delete.
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota
	NotFound
	Failed
)

func (o DeleteOutcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// DeleteIfExists checks for the object first and deletes it when present.
// The returned error is non-nil only for Failed.
func DeleteIfExists(ctx context.Context, s Store, objectPath string) (DeleteOutcome, error) {
	exists, err := s.Exists(ctx, objectPath)
	if err != nil {
		return Failed, fmt.Errorf("stat %s: %w", objectPath, err)
	}
	if !exists {
		return NotFound, nil
	}
	if err := s.Delete(ctx, objectPath); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFound, nil
		}
		return Failed, fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return Deleted, nil
}
