// cmd/media-sync/commands.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tendant/drive-media-sync/internal/gcp"
	"github.com/tendant/drive-media-sync/internal/img"
	"github.com/tendant/drive-media-sync/internal/pipeline"
	"github.com/tendant/drive-media-sync/internal/sheets"
)

type reconcileFlags struct {
	resume  bool
	workers int
}

func (f *reconcileFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.resume, "resume", false, "Continue the latest unfinished run instead of starting over")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Units imported at once (overrides WORKERS)")
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var rootFlags reconcileFlags
	root := &cobra.Command{
		Use:   "media-sync",
		Short: "Rebuild external unit media from the inventory spreadsheet and Google Drive",
		Long: `
media-sync deletes every imported unit thumbnail and media row, then
re-imports photos and videos from the Drive folder linked to each unit's
spreadsheet row. Photos are cover-cropped to JPEG and published to the
storage bucket; videos are linked to the Drive player.

Running it without a subcommand is the same as "media-sync reconcile".
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, logger, rootFlags)
		},
	}
	rootFlags.register(root)

	root.AddCommand(newReconcileCmd(logger), newCleanupCmd(logger), newRowsCmd(logger), newThumbCmd(logger))
	return root
}

func newReconcileCmd(logger *slog.Logger) *cobra.Command {
	var flags reconcileFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Clean up, then rebuild the media of every linked unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, logger, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runReconcile(cmd *cobra.Command, logger *slog.Logger, flags reconcileFlags) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.requireSheet(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.workers > 0 {
		cfg.Pipeline.Workers = flags.workers
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline.Reconcile(ctx, pipeline.RunOptions{Resume: flags.resume})
	a.pushMetrics()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if report.Cleanup != nil {
		logger.Info("cleanup summary",
			"blobs_deleted", report.Cleanup.Deleted,
			"blobs_not_found", report.Cleanup.NotFound,
			"blobs_failed", report.Cleanup.Failed,
			"rows_deleted", report.Cleanup.RowsDeleted,
		)
	}
	return nil
}

func newCleanupCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every imported thumbnail and media row without re-importing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.runCleanup(ctx)
			if err != nil {
				return err
			}
			logger.Info("cleanup summary",
				"blobs_deleted", summary.Deleted,
				"blobs_not_found", summary.NotFound,
				"blobs_failed", summary.Failed,
				"rows_deleted", summary.RowsDeleted,
			)
			return nil
		},
	}
}

func newRowsCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "rows",
		Short: "Print the spreadsheet rows that link to a Drive folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.requireSheet(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := cmd.Context()
			client, err := gcp.NewHTTPClient(ctx, cfg.ServiceAccountFile, cfg.ImpersonateSubject)
			if err != nil {
				return fmt.Errorf("google credentials: %w", err)
			}
			svcs, err := gcp.NewServices(ctx, client)
			if err != nil {
				return err
			}

			reader := sheets.NewReader(sheets.NewGoogleSource(svcs.Sheets), cfg.sheetsConfig(), logger)
			data, err := reader.ReadMediaData(ctx)
			if err != nil {
				return fmt.Errorf("read spreadsheet: %w", err)
			}
			return printRows(cmd.OutOrStdout(), data)
		},
	}
}

func printRows(w io.Writer, data []sheets.DriveMediaData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tCONDOMINIUM\tUNIT\tFOLDER\tDIRECT")
	for _, d := range data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.SheetRowID, d.CondominiumName, d.UnitNumber, d.FichasDriveURL, d.DirectDriveURL)
	}
	return tw.Flush()
}

func newThumbCmd(logger *slog.Logger) *cobra.Command {
	var (
		input   string
		output  string
		width   int
		height  int
		quality int
	)
	cmd := &cobra.Command{
		Use:   "thumb",
		Short: "Cover-crop a local image the way imported photos are processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				ext := filepath.Ext(input)
				output = input[:len(input)-len(ext)] + "_thumb.jpg"
			}
			spec := img.CoverSpec{Width: width, Height: height, Quality: quality}
			thumb, err := img.GenerateThumbnail(input, output, spec)
			if err != nil {
				return fmt.Errorf("thumbnail %s: %w", input, err)
			}
			logger.Info("thumbnail written",
				"output", output,
				"source", fmt.Sprintf("%dx%d", thumb.SourceWidth, thumb.SourceHeight),
				"size", fmt.Sprintf("%dx%d", thumb.Width, thumb.Height),
				"bytes", humanize.Bytes(uint64(thumb.Size())),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input image path")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output JPEG path (default: <input>_thumb.jpg)")
	cmd.Flags().IntVar(&width, "width", img.DefaultCover.Width, "Thumbnail width")
	cmd.Flags().IntVar(&height, "height", img.DefaultCover.Height, "Thumbnail height")
	cmd.Flags().IntVar(&quality, "quality", img.DefaultCover.Quality, "JPEG quality")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
