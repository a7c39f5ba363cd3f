// Package pipeline reconciles unit media: it wipes previously imported
// thumbnails and rows, then rebuilds them from the spreadsheet and Drive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tendant/drive-media-sync/internal/blob"
	"github.com/tendant/drive-media-sync/internal/bus"
	"github.com/tendant/drive-media-sync/internal/drive"
	"github.com/tendant/drive-media-sync/internal/metrics"
	"github.com/tendant/drive-media-sync/internal/process"
	"github.com/tendant/drive-media-sync/internal/sheets"
	"github.com/tendant/drive-media-sync/internal/store"
	"github.com/tendant/drive-media-sync/pkg/schema"
)

// MediaSource yields the spreadsheet rows that link to Drive.
type MediaSource interface {
	ReadMediaData(ctx context.Context) ([]sheets.DriveMediaData, error)
}

// MediaFetcher lists and downloads the media of one Drive folder.
type MediaFetcher interface {
	Fetch(ctx context.Context, folderURL string) (*drive.Media, error)
}

type Repository interface {
	ListLinkedUnits(ctx context.Context) ([]store.ExternalUnit, error)
	ListMedia(ctx context.Context) ([]store.ExternalUnitMedia, error)
	ListUnitMedia(ctx context.Context, unitID uuid.UUID) ([]store.ExternalUnitMedia, error)
	DeleteAllMedia(ctx context.Context) (int64, error)
	DeleteUnitMedia(ctx context.Context, unitID uuid.UUID) (int64, error)
	InsertMedia(ctx context.Context, m *store.ExternalUnitMedia) error
}

type Journal interface {
	CreateRun(ctx context.Context, r *process.Run) error
	UpdateRun(ctx context.Context, r *process.Run) error
	LatestRun(ctx context.Context, kind string) (*process.Run, error)
	RecordUnit(ctx context.Context, u process.UnitResult) error
	CompletedUnits(ctx context.Context, runID uuid.UUID) (map[uuid.UUID]bool, error)
}

// Deps are the collaborators of a Pipeline. Events and Metrics are optional.
type Deps struct {
	Source  MediaSource
	Fetcher MediaFetcher
	Blobs   blob.Store
	Repo    Repository
	Journal Journal
	Events  bus.Publisher
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

type Pipeline struct {
	cfg     Config
	source  MediaSource
	fetcher MediaFetcher
	blobs   blob.Store
	repo    Repository
	journal Journal
	events  bus.Publisher
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if deps.Source == nil || deps.Fetcher == nil || deps.Blobs == nil || deps.Repo == nil || deps.Journal == nil {
		return nil, errors.New("pipeline requires source, fetcher, blob store, repository and journal")
	}
	p := &Pipeline{
		cfg:     cfg,
		source:  deps.Source,
		fetcher: deps.Fetcher,
		blobs:   deps.Blobs,
		repo:    deps.Repo,
		journal: deps.Journal,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if p.events == nil {
		p.events = bus.Nop{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// RunOptions select how Reconcile starts.
type RunOptions struct {
	// Resume continues the latest unfinished run. Cleanup is repeated only
	// when that run never finished it; units already journalled for the run
	// are left alone.
	Resume bool
}

// Report summarises a finished run.
type Report struct {
	RunID    uuid.UUID
	Resumed  bool
	Cleanup  *CleanupSummary
	Stats    Stats
	Duration time.Duration
}

// Reconcile performs one reconciliation run: read the sheet, clean up, then
// rebuild every linked unit.
func (p *Pipeline) Reconcile(ctx context.Context, opts RunOptions) (*Report, error) {
	start := time.Now()

	run, done, err := p.openRun(ctx, opts.Resume)
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: run.ID, Resumed: done != nil}
	logger := p.logger.With("run_id", run.ID.String())
	logger.Info("reconciliation starting",
		"resumed", report.Resumed,
		"workers", p.cfg.Workers,
		"unit_delay", p.cfg.UnitDelay,
		"max_photos", p.cfg.MaxPhotosPerUnit(),
		"max_videos", p.cfg.MaxVideosPerUnit,
	)

	stats, err := p.reconcile(ctx, run, done, report, logger)
	report.Stats = stats
	report.Duration = time.Since(start)
	p.closeRun(run, err, report, logger)
	if err != nil {
		return report, err
	}

	logger.Info("reconciliation complete",
		"units_processed", stats.UnitsProcessed,
		"units_skipped", stats.UnitsSkipped,
		"photos_imported", stats.PhotosImported,
		"videos_imported", stats.VideosImported,
		"photos_failed", stats.PhotosFailed,
		"storage", humanize.Bytes(uint64(stats.StorageBytes)),
		"took", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

func (p *Pipeline) reconcile(ctx context.Context, run *process.Run, done map[uuid.UUID]bool, report *Report, logger *slog.Logger) (Stats, error) {
	// The sheet is read before anything is deleted so an upstream failure
	// leaves the previous import intact.
	data, err := p.source.ReadMediaData(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read spreadsheet: %w", err)
	}
	index := sheets.Index(data)

	if !run.CleanupDone {
		summary, err := p.cleanup(ctx, run.ID, logger)
		if err != nil {
			return Stats{}, err
		}
		report.Cleanup = summary
		run.CleanupDone = true
		if err := p.journal.UpdateRun(ctx, run); err != nil {
			return Stats{}, fmt.Errorf("journal cleanup: %w", err)
		}
	}

	// Units a resumed run re-imports may still hold rows and blobs from the
	// interrupted attempt.
	wipeFirst := report.Cleanup == nil
	return p.rebuild(ctx, run, index, done, wipeFirst, logger)
}

// RunCleanup performs the cleanup phase on its own under a journal entry.
func (p *Pipeline) RunCleanup(ctx context.Context) (*CleanupSummary, error) {
	run := process.NewRun(process.KindCleanup)
	process.MarkRunning(run)
	if err := p.journal.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("open run: %w", err)
	}
	logger := p.logger.With("run_id", run.ID.String())

	summary, err := p.cleanup(ctx, run.ID, logger)
	if err != nil {
		process.MarkFailed(run, err)
	} else {
		run.CleanupDone = true
		process.MarkSucceeded(run)
	}
	if uerr := p.journal.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		logger.Error("close run failed", "err", uerr)
	}
	return summary, err
}

func (p *Pipeline) openRun(ctx context.Context, resume bool) (*process.Run, map[uuid.UUID]bool, error) {
	if resume {
		latest, err := p.journal.LatestRun(ctx, process.KindReconcile)
		if err != nil {
			return nil, nil, fmt.Errorf("find run to resume: %w", err)
		}
		if latest != nil && latest.Resumable() {
			done, err := p.journal.CompletedUnits(ctx, latest.ID)
			if err != nil {
				return nil, nil, fmt.Errorf("load completed units: %w", err)
			}
			latest.FinishedAt = nil
			latest.Error = ""
			process.MarkRunning(latest)
			if err := p.journal.UpdateRun(ctx, latest); err != nil {
				return nil, nil, fmt.Errorf("reopen run: %w", err)
			}
			p.logger.Info("resuming run", "run_id", latest.ID.String(), "completed_units", len(done), "cleanup_done", latest.CleanupDone)
			return latest, done, nil
		}
		p.logger.Info("no unfinished run to resume, starting a full run")
	}

	run := process.NewRun(process.KindReconcile)
	process.MarkRunning(run)
	if err := p.journal.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("open run: %w", err)
	}
	return run, nil, nil
}

func (p *Pipeline) closeRun(run *process.Run, cause error, report *Report, logger *slog.Logger) {
	if cause != nil {
		process.MarkFailed(run, cause)
		logger.Error("reconciliation failed", "err", cause)
	} else {
		process.MarkSucceeded(run)
	}
	// The caller's context may already be cancelled; the journal must still
	// learn how the run ended.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.journal.UpdateRun(ctx, run); err != nil {
		logger.Error("close run failed", "err", err)
	}

	if p.metrics != nil {
		p.metrics.RunFinished(string(run.Status), report.Duration)
	}

	s := report.Stats
	p.publish(p.cfg.EventSubject, schema.RunCompleted{
		RunID:            run.ID.String(),
		Status:           string(run.Status),
		Resumed:          report.Resumed,
		UnitsProcessed:   s.UnitsProcessed,
		UnitsSkipped:     s.UnitsSkipped,
		PhotosImported:   s.PhotosImported,
		VideosImported:   s.VideosImported,
		PhotosFailed:     s.PhotosFailed,
		StorageBytes:     s.StorageBytes,
		ProcessingTimeMs: report.Duration.Milliseconds(),
		Error:            run.Error,
		HappenedAt:       p.now().Unix(),
	})
}

func (p *Pipeline) publish(subject string, event any) {
	if err := p.events.PublishJSON(subject, event); err != nil {
		p.logger.Error("publish event failed", "subject", subject, "err", err)
	}
}

func (p *Pipeline) newLimiter() *rate.Limiter {
	if p.cfg.UnitDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.cfg.UnitDelay), 1)
}

// rebuild imports every linked unit. Units run on a bounded pool and are
// admitted by a token bucket; a per-unit failure never aborts the run, only
// cancellation does.
func (p *Pipeline) rebuild(ctx context.Context, run *process.Run, index map[string]sheets.DriveMediaData, done map[uuid.UUID]bool, wipeFirst bool, logger *slog.Logger) (Stats, error) {
	units, err := p.repo.ListLinkedUnits(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list units: %w", err)
	}
	logger.Info("rebuilding unit media", "units", len(units), "sheet_rows", len(index))

	var counter statsCounter
	limiter := p.newLimiter()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, unit := range units {
		if done[unit.ID] {
			continue
		}
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		unit := unit
		g.Go(func() error {
			delta, err := p.importUnit(gctx, run, unit, index, wipeFirst)
			counter.add(delta)
			return err
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return counter.snapshot(), err
}

func (p *Pipeline) skipUnit(ctx context.Context, run *process.Run, unit store.ExternalUnit, logger *slog.Logger, reason string) Stats {
	logger.Info("skipping unit", "reason", reason)
	if p.metrics != nil {
		p.metrics.Unit("skipped")
	}
	p.recordUnit(ctx, process.UnitResult{RunID: run.ID, UnitID: unit.ID, Status: process.UnitStatusSkipped}, logger)
	return Stats{UnitsSkipped: 1}
}

func (p *Pipeline) recordUnit(ctx context.Context, res process.UnitResult, logger *slog.Logger) {
	res.CompletedAt = p.now()
	if err := p.journal.RecordUnit(ctx, res); err != nil {
		logger.Warn("journal unit failed", "err", err)
	}
}
