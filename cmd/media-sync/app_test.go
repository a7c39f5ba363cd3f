package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tendant/drive-media-sync/internal/blob"
	"github.com/tendant/drive-media-sync/internal/drive"
	"github.com/tendant/drive-media-sync/internal/metrics"
	"github.com/tendant/drive-media-sync/internal/pipeline"
	"github.com/tendant/drive-media-sync/internal/process"
	"github.com/tendant/drive-media-sync/internal/sheets"
	"github.com/tendant/drive-media-sync/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emptySource struct{}

func (emptySource) ReadMediaData(context.Context) ([]sheets.DriveMediaData, error) { return nil, nil }

type noFetcher struct{}

func (noFetcher) Fetch(context.Context, string) (*drive.Media, error) {
	return nil, errors.New("no drive in tests")
}

// brokenMediaRepo fails to list media, as a dropped database connection would.
type brokenMediaRepo struct {
	*store.Memory
}

func (brokenMediaRepo) ListMedia(context.Context) ([]store.ExternalUnitMedia, error) {
	return nil, errors.New("connection reset by peer")
}

func TestNewAppReturnsConfigErrors(t *testing.T) {
	_, err := newApp(context.Background(), config{StorageBucket: "units-media"}, discardLogger())
	if !errors.Is(err, errMissingDatabase) {
		t.Fatalf("expected errMissingDatabase, got %v", err)
	}

	_, err = newApp(context.Background(), config{DatabaseURL: "postgres://localhost/media"}, discardLogger())
	if !errors.Is(err, errMissingBucket) {
		t.Fatalf("expected errMissingBucket, got %v", err)
	}
}

func TestCommandsReturnConfigErrors(t *testing.T) {
	tests := []struct {
		args []string
		want error
	}{
		{[]string{"rows"}, errMissingSpreadsheet},
		{[]string{"reconcile"}, errMissingSpreadsheet},
		{[]string{"cleanup"}, errMissingBucket},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			clearEnv(t)
			root := newRootCmd(discardLogger())
			root.SetArgs(tt.args)
			if err := root.Execute(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunCleanupPushesMetricsOnFailure(t *testing.T) {
	var pushes atomic.Int32
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	repo := brokenMediaRepo{store.NewMemory()}
	logger := discardLogger()
	p, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{
		Source:  emptySource{},
		Fetcher: noFetcher{},
		Blobs:   blob.NewMemory("https://storage.googleapis.com/units-media/"),
		Repo:    repo,
		Journal: repo,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	a := &app{
		cfg:      config{PushgatewayURL: gateway.URL, MetricsJob: "media_sync"},
		logger:   logger,
		metrics:  metrics.NewRecorder(),
		pipeline: p,
	}

	if _, err := a.runCleanup(context.Background()); err == nil {
		t.Fatal("expected cleanup to fail")
	}
	if got := pushes.Load(); got != 1 {
		t.Fatalf("expected one push after a failed cleanup, got %d", got)
	}

	run, err := repo.LatestRun(context.Background(), process.KindCleanup)
	if err != nil || run == nil {
		t.Fatalf("expected a journalled cleanup run, got %v %v", run, err)
	}
	if run.Status != process.RunStatusFailed || run.CleanupDone {
		t.Fatalf("unexpected run state: %+v", run)
	}
}
