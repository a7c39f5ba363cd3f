package pipeline

import (
	"sync"

	"github.com/tendant/drive-media-sync/internal/blob"
)

// Stats are the running totals of a rebuild.
type Stats struct {
	UnitsProcessed int
	UnitsSkipped   int
	PhotosImported int
	VideosImported int
	PhotosFailed   int
	VideosFailed   int
	StorageBytes   int64
}

type statsCounter struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCounter) add(delta Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.UnitsProcessed += delta.UnitsProcessed
	c.s.UnitsSkipped += delta.UnitsSkipped
	c.s.PhotosImported += delta.PhotosImported
	c.s.VideosImported += delta.VideosImported
	c.s.PhotosFailed += delta.PhotosFailed
	c.s.VideosFailed += delta.VideosFailed
	c.s.StorageBytes += delta.StorageBytes
}

func (c *statsCounter) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

// CleanupSummary aggregates the blob deletions and row wipe of a cleanup.
type CleanupSummary struct {
	MediaRows int
	// External counts rows whose thumbnail is not stored in our bucket
	// (video posters hosted by Drive).
	External    int
	Deleted     int
	NotFound    int
	Failed      int
	RowsDeleted int64
}

func (s *CleanupSummary) record(o blob.DeleteOutcome) {
	switch o {
	case blob.Deleted:
		s.Deleted++
	case blob.NotFound:
		s.NotFound++
	default:
		s.Failed++
	}
}
