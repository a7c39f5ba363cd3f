// internal/img/thumb.go
package img

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for sources the decoder cannot read.
var ErrUnsupportedImage = errors.New("unsupported image format")

// OutputMimeType is the content type of every thumbnail this package writes.
const OutputMimeType = "image/jpeg"

var decodable = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp"}

// CoverSpec describes a fixed-size cover crop.
type CoverSpec struct {
	Width   int
	Height  int
	Quality int
}

// DefaultCover is the listing thumbnail: 1200x900 at JPEG quality 90.
var DefaultCover = CoverSpec{Width: 1200, Height: 900, Quality: 90}

type Thumbnail struct {
	Data         []byte
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
}

// Size returns the encoded size in bytes.
func (t *Thumbnail) Size() int64 { return int64(len(t.Data)) }

// CoverThumbnail decodes src, fills the spec box around the centre (cropping
// whatever overflows) and re-encodes the result as JPEG.
func CoverThumbnail(src []byte, spec CoverSpec) (*Thumbnail, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid cover size %dx%d", spec.Width, spec.Height)
	}
	if mt := mimetype.Detect(src); !mimetype.EqualsAny(mt.String(), decodable...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	decoded, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return encodeCover(decoded, spec)
}

func encodeCover(src image.Image, spec CoverSpec) (*Thumbnail, error) {
	srcBounds := src.Bounds()
	thumb := imaging.Fill(src, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)

	quality := spec.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultCover.Quality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	b := thumb.Bounds()
	return &Thumbnail{
		Data:         buf.Bytes(),
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceWidth:  srcBounds.Dx(),
		SourceHeight: srcBounds.Dy(),
	}, nil
}

// GenerateThumbnail loads an image from srcPath, cover-crops it to spec and
// writes the JPEG to dstPath.
func GenerateThumbnail(srcPath, dstPath string, spec CoverSpec) (*Thumbnail, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	thumb, err := CoverThumbnail(data, spec)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(dstPath, thumb.Data, 0o644); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}
	return thumb, nil
}
