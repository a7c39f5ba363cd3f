package pipeline

import (
	"fmt"
	"time"

	"github.com/tendant/drive-media-sync/internal/drive"
	"github.com/tendant/drive-media-sync/internal/img"
)

// Config carries every knob of a reconciliation run.
type Config struct {
	MaxPrimaryPhotos   int
	MaxSecondaryPhotos int
	MaxVideosPerUnit   int

	Cover img.CoverSpec

	// UnitDelay is the minimum spacing between unit starts. Zero disables
	// throttling.
	UnitDelay time.Duration
	// Workers bounds how many units are imported at once.
	Workers int

	// EventSubject is the base NATS subject for run events.
	EventSubject string
}

func DefaultConfig() Config {
	return Config{
		MaxPrimaryPhotos:   5,
		MaxSecondaryPhotos: 20,
		MaxVideosPerUnit:   10,
		Cover:              img.DefaultCover,
		UnitDelay:          time.Second,
		Workers:            1,
		EventSubject:       "media.import",
	}
}

// MaxPhotosPerUnit is the primary plus secondary photo allowance.
func (c Config) MaxPhotosPerUnit() int { return c.MaxPrimaryPhotos + c.MaxSecondaryPhotos }

// FetchLimits are the truncation limits handed to the Drive fetcher.
func (c Config) FetchLimits() drive.Limits {
	return drive.Limits{MaxPhotos: c.MaxPhotosPerUnit(), MaxVideos: c.MaxVideosPerUnit}
}

func (c Config) Validate() error {
	if c.MaxPrimaryPhotos < 1 {
		return fmt.Errorf("max primary photos must be at least 1 (got %d)", c.MaxPrimaryPhotos)
	}
	if c.MaxSecondaryPhotos < 0 || c.MaxVideosPerUnit < 0 {
		return fmt.Errorf("photo and video limits must not be negative")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1 (got %d)", c.Workers)
	}
	if c.UnitDelay < 0 {
		return fmt.Errorf("unit delay must not be negative (got %s)", c.UnitDelay)
	}
	if c.Cover.Width <= 0 || c.Cover.Height <= 0 {
		return fmt.Errorf("invalid cover size %dx%d", c.Cover.Width, c.Cover.Height)
	}
	return nil
}

// PhotoTier labels a photo slot.
type PhotoTier string

const (
	TierPrimary   PhotoTier = "primary"
	TierSecondary PhotoTier = "secondary"
)

// Tier returns the tier of the photo at index in the truncated list. Only
// primary photos are cover eligible; index 0 is the cover.
func (c Config) Tier(index int) PhotoTier {
	if index < c.MaxPrimaryPhotos {
		return TierPrimary
	}
	return TierSecondary
}
