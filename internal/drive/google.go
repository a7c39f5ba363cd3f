package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const listFields = "nextPageToken,files(id,name,mimeType,size,webViewLink)"

// GoogleLister talks to the Drive v3 API. Shared drives are included.
type GoogleLister struct {
	svc      *driveapi.Service
	pageSize int64
}

func NewGoogleLister(svc *driveapi.Service) *GoogleLister {
	return &GoogleLister{svc: svc, pageSize: 1000}
}

// ListFolder returns the non-trashed direct children of folderID in the
// order the API returns them.
func (g *GoogleLister) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", strings.ReplaceAll(folderID, "'", `\'`))
	call := g.svc.Files.List().
		Q(q).
		PageSize(g.pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields(googleapi.Field(listFields))

	var files []File
	err := call.Pages(ctx, func(page *driveapi.FileList) error {
		for _, item := range page.Files {
			files = append(files, File{
				ID:          item.Id,
				Name:        item.Name,
				MimeType:    item.MimeType,
				Size:        item.Size,
				WebViewLink: item.WebViewLink,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}
	return files, nil
}

// Download streams the binary content of fileID.
func (g *GoogleLister) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := g.svc.Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return resp.Body, nil
}
