package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and reset stored watermarks",
}

var stateShowCmd = &cobra.Command{
	Use:   "show <source-id>",
	Short: "Show the watermark of every resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <source-id>",
	Short: "Forget watermarks so the next sync starts over",
	Long: `Deletes the stored watermark of one resource, or of every resource of
the source when --resource is omitted. The next sync starts from the
source's start date.`,
	Args: cobra.ExactArgs(1),
	RunE: runStateReset,
}

var stateHistoryCmd = &cobra.Command{
	Use:   "history <source-id>",
	Short: "List recent runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateHistory,
}

var (
	resetResource string
	historyLimit  int
)

func init() {
	stateResetCmd.Flags().StringVarP(&resetResource, "resource", "r", "", "Only reset this resource")
	stateHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	stateCmd.AddCommand(stateHistoryCmd)
	rootCmd.AddCommand(stateCmd)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	if stateService == nil {
		return notConfigured("state")
	}

	sourceID := args[0]
	checkpoint, err := stateService.Show(context.Background(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	names := checkpoint.ResourceNames()
	if len(names) == 0 {
		cmd.Printf("No watermarks stored for source: %s\n", sourceID)
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		mark := checkpoint.Resources[name]
		rows = append(rows, []string{name, formatTime(mark.Watermark), formatTime(mark.UpdatedAt)})
	}
	cmd.Println(renderTable([]string{"Resource", "Watermark", "Updated"}, rows))
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	if stateService == nil {
		return notConfigured("state")
	}

	sourceID := args[0]
	if err := stateService.Reset(context.Background(), sourceID, resetResource); err != nil {
		return fmt.Errorf("failed to reset state: %w", err)
	}

	if resetResource == "" {
		cmd.Printf("Reset all watermarks of %s.\n", sourceID)
	} else {
		cmd.Printf("Reset watermark of %s/%s.\n", sourceID, resetResource)
	}
	return nil
}

func runStateHistory(cmd *cobra.Command, args []string) error {
	if stateService == nil {
		return notConfigured("state")
	}

	sourceID := args[0]
	runs, err := stateService.History(context.Background(), sourceID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Printf("No runs recorded for source: %s\n", sourceID)
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for i := range runs {
		rows = append(rows, historyRow(&runs[i]))
	}
	cmd.Println(renderTable(
		[]string{"Started", "Resource", "Duration", "Records", "Watermark", "Status"},
		rows,
	))

	for i := range runs {
		if !runs[i].Succeeded() {
			cmd.Printf("%s %s: %s\n", formatTime(runs[i].StartedAt), runs[i].Resource, runs[i].Error)
		}
	}
	return nil
}

func historyRow(run *domain.SyncRun) []string {
	status := statusOK
	if !run.Succeeded() {
		status = statusFailed
	}
	return []string{
		formatTime(run.StartedAt),
		run.Resource,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
		strconv.Itoa(run.Records),
		formatTime(run.Watermark),
		status,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateTime)
}
