// Package drive lists and downloads unit media from Google Drive folders.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tendant/drive-media-sync/internal/driveurl"
)

// File is the listing metadata the pipeline keeps for a Drive object.
type File struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	WebViewLink string
}

func (f File) IsPhoto() bool { return strings.HasPrefix(strings.ToLower(f.MimeType), "image/") }
func (f File) IsVideo() bool { return strings.HasPrefix(strings.ToLower(f.MimeType), "video/") }

// Lister is the subset of the Drive API the fetcher needs.
type Lister interface {
	ListFolder(ctx context.Context, folderID string) ([]File, error)
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Photo is a downloaded image. Index is its position in the truncated
// candidate list, so it survives earlier download failures.
type Photo struct {
	File
	Index int
	Data  []byte
}

// Video is a Drive-hosted video; nothing is downloaded.
type Video struct {
	File
	Index        int
	PlaybackURL  string
	ThumbnailURL string
}

// Media is everything fetched for one folder.
type Media struct {
	FolderID string
	Photos   []Photo
	Videos   []Video
	// PhotoSlots is the length of the truncated photo candidate list,
	// before any download failure.
	PhotoSlots   int
	FailedPhotos int
	ListedPhotos int
	ListedVideos int
}

type Limits struct {
	MaxPhotos int
	MaxVideos int
}

type Fetcher struct {
	lister Lister
	limits Limits
	logger *slog.Logger
}

func NewFetcher(lister Lister, limits Limits, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{lister: lister, limits: limits, logger: logger}
}

// Fetch resolves folderURL, lists its media and downloads the photos.
// An unparsable URL returns driveurl.ErrNoFolderID. A listing failure is
// logged and yields empty media; per-photo download failures are logged and
// the photo is skipped.
func (f *Fetcher) Fetch(ctx context.Context, folderURL string) (*Media, error) {
	folderID, err := driveurl.FolderID(folderURL)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", folderURL, err)
	}
	logger := f.logger.With("folder_id", folderID)
	media := &Media{FolderID: folderID}

	files, err := f.lister.ListFolder(ctx, folderID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("list folder failed", "err", err)
		return media, nil
	}

	var photos, videos []File
	for _, file := range files {
		switch {
		case file.IsPhoto():
			photos = append(photos, file)
		case file.IsVideo():
			videos = append(videos, file)
		}
	}
	media.ListedPhotos = len(photos)
	media.ListedVideos = len(videos)

	photos = truncate(photos, f.limits.MaxPhotos)
	videos = truncate(videos, f.limits.MaxVideos)
	media.PhotoSlots = len(photos)

	for i, file := range photos {
		data, err := f.download(ctx, file.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			media.FailedPhotos++
			logger.Warn("download photo failed", "file_id", file.ID, "name", file.Name, "err", err)
			continue
		}
		media.Photos = append(media.Photos, Photo{File: file, Index: i, Data: data})
	}

	for i, file := range videos {
		media.Videos = append(media.Videos, Video{
			File:         file,
			Index:        i,
			PlaybackURL:  PlaybackURL(file.ID),
			ThumbnailURL: ThumbnailURL(file.ID),
		})
	}

	logger.Info("fetched folder",
		"listed_photos", media.ListedPhotos,
		"listed_videos", media.ListedVideos,
		"photos", len(media.Photos),
		"videos", len(media.Videos),
		"failed_photos", media.FailedPhotos,
	)
	return media, nil
}

func (f *Fetcher) download(ctx context.Context, fileID string) ([]byte, error) {
	rc, err := f.lister.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// PlaybackURL is the embeddable Drive player for a video.
func PlaybackURL(fileID string) string {
	return "https://drive.google.com/file/d/" + url.PathEscape(fileID) + "/preview"
}

// ThumbnailURL is the Drive-rendered poster frame for a video.
func ThumbnailURL(fileID string) string {
	return "https://drive.google.com/thumbnail?id=" + url.QueryEscape(fileID) + "&sz=w1200"
}

func truncate(files []File, max int) []File {
	if max >= 0 && len(files) > max {
		return files[:max]
	}
	return files
}
