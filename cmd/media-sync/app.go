// cmd/media-sync/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/drive-media-sync/internal/blob"
	"github.com/tendant/drive-media-sync/internal/bus"
	"github.com/tendant/drive-media-sync/internal/drive"
	"github.com/tendant/drive-media-sync/internal/gcp"
	"github.com/tendant/drive-media-sync/internal/metrics"
	"github.com/tendant/drive-media-sync/internal/pipeline"
	"github.com/tendant/drive-media-sync/internal/sheets"
	"github.com/tendant/drive-media-sync/internal/store"
)

// app owns every connection a pipeline run needs.
type app struct {
	cfg      config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	nc       *bus.Client
	metrics  *metrics.Recorder
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context, cfg config, logger *slog.Logger) (*app, error) {
	if err := cfg.requireStorage(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Info("media-sync starting",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName,
		"storage_backend", cfg.StorageBackend,
		"bucket", cfg.StorageBucket,
		"nats", cfg.NATSURL != "",
		"pushgateway", cfg.PushgatewayURL != "",
	)

	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewRecorder()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	client, err := gcp.NewHTTPClient(ctx, cfg.ServiceAccountFile, cfg.ImpersonateSubject)
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}
	svcs, err := gcp.NewServices(ctx, client)
	if err != nil {
		return nil, err
	}

	var blobs blob.Store
	switch cfg.StorageBackend {
	case "memory":
		blobs = blob.NewMemory(cfg.publicBaseURL())
		logger.Warn("using in-memory blob store, thumbnails will not be published")
	default:
		blobs = blob.NewGCS(svcs.Storage, cfg.StorageBucket)
	}

	a.pool, err = store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := store.NewPostgres(a.pool)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("database schema ensured")
	}

	var events bus.Publisher = bus.Nop{}
	if cfg.NATSURL != "" {
		a.nc, err = bus.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS %s: %w", cfg.NATSURL, err)
		}
		events = a.nc
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "subject", cfg.Pipeline.EventSubject)
	}

	reader := sheets.NewReader(sheets.NewGoogleSource(svcs.Sheets), cfg.sheetsConfig(), logger)
	fetcher := drive.NewFetcher(drive.NewGoogleLister(svcs.Drive), cfg.Pipeline.FetchLimits(), logger)

	a.pipeline, err = pipeline.New(cfg.Pipeline, pipeline.Deps{
		Source:  reader,
		Fetcher: fetcher,
		Blobs:   blobs,
		Repo:    repo,
		Journal: repo,
		Events:  events,
		Metrics: a.metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// runCleanup wipes every thumbnail and media row. Metrics are pushed whether
// or not the cleanup failed.
func (a *app) runCleanup(ctx context.Context) (*pipeline.CleanupSummary, error) {
	summary, err := a.pipeline.RunCleanup(ctx)
	a.pushMetrics()
	if err != nil {
		return summary, fmt.Errorf("cleanup: %w", err)
	}
	return summary, nil
}

func (a *app) pushMetrics() {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := a.metrics.Push(a.cfg.PushgatewayURL, a.cfg.MetricsJob); err != nil {
		a.logger.Warn("push metrics failed", "err", err)
	}
}

func (a *app) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
