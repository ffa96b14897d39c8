package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
	"github.com/custodia-labs/tidemark/internal/validation"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source-id]",
	Short: "Extract new records from sources",
	Long: `Extracts records changed since the stored watermark of each resource.
If a source ID is provided, only that source is synchronised.
Otherwise, all sources are synchronised.

A watermark only advances after the records it covers are written, so an
interrupted run fetches the same window again next time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var (
	syncResources []string
	syncStartDate string
	syncEndDate   string
	syncFull      bool
	syncEvery     time.Duration
)

// progressInterval is how often the terminal progress line refreshes.
var progressInterval = 500 * time.Millisecond

func init() {
	flags := syncCmd.Flags()
	flags.StringSliceVarP(&syncResources, "resource", "r", nil, "Only extract these resources (repeatable)")
	flags.StringVar(&syncStartDate, "start-date", "", "Lower bound (YYYY-MM-DD), ignoring stored watermarks")
	flags.StringVar(&syncEndDate, "end-date", "", "Upper bound (YYYY-MM-DD)")
	flags.BoolVar(&syncFull, "full", false, "Ignore stored watermarks and start from the source start date")
	flags.DurationVar(&syncEvery, "every", 0, "Keep running and sync all sources at this interval")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return notConfigured("sync")
	}

	opts, err := syncOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if syncEvery > 0 {
		if len(args) > 0 {
			return fmt.Errorf("--every syncs all sources and takes no source ID")
		}
		return runScheduled(ctx, cmd, opts)
	}

	if len(args) > 0 {
		sourceID := args[0]
		cmd.Printf("Synchronising source: %s...\n", sourceID)

		if err := syncWithProgress(ctx, cmd, syncOrchestrator, sourceID, opts); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		cmd.Printf("Source %s synchronised successfully.\n", sourceID)
		return nil
	}

	cmd.Println("Synchronising all sources...")
	if err := syncOrchestrator.SyncAll(ctx, opts); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Println("All sources synchronised successfully.")
	return nil
}

func runScheduled(ctx context.Context, cmd *cobra.Command, opts driving.SyncOptions) error {
	if newScheduler == nil {
		return notConfigured("scheduler")
	}
	cmd.Printf("Synchronising all sources every %s (Ctrl-C to stop)...\n", syncEvery)
	err := newScheduler(syncEvery, opts).Start(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func syncOptions() (driving.SyncOptions, error) {
	opts := driving.SyncOptions{
		Resources: syncResources,
		Full:      syncFull,
	}
	if syncStartDate != "" {
		t, err := validation.ParseDate(syncStartDate)
		if err != nil {
			return opts, fmt.Errorf("--start-date: %w", err)
		}
		opts.StartDate = &t
	}
	if syncEndDate != "" {
		end, err := validation.ParseEndDate(syncEndDate)
		if err != nil {
			return opts, fmt.Errorf("--end-date: %w", err)
		}
		opts.EndDate = &end
	}
	if opts.StartDate != nil && opts.EndDate != nil && opts.EndDate.Before(*opts.StartDate) {
		return opts, fmt.Errorf("--end-date is before --start-date")
	}
	return opts, nil
}

// syncWithProgress runs sync while displaying progress updates on a terminal.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	sourceID string,
	opts driving.SyncOptions,
) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- syncOrch.Sync(ctx, sourceID, opts)
	}()

	if !isTerminal(cmd.OutOrStdout()) {
		return <-errCh
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case err := <-errCh:
			if lastCount > 0 {
				cmd.Println()
			}
			return err
		case <-ticker.C:
			// Progress is best effort
			status, statusErr := syncOrch.Status(ctx, sourceID)
			if statusErr == nil && status != nil && status.RecordsWritten > lastCount {
				cmd.Printf("\r%s: %d records written", status.Resource, status.RecordsWritten)
				lastCount = status.RecordsWritten
			}
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
