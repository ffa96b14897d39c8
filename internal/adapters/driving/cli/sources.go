package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long:  `Lists the sources defined in sources.toml.`,
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return notConfigured("source")
	}

	sources, err := sourceService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	rows := make([][]string, 0, len(sources))
	for i := range sources {
		resources := "all"
		if len(sources[i].Resources) > 0 {
			resources = strings.Join(sources[i].Resources, ", ")
		}
		rows = append(rows, []string{
			sources[i].ID,
			sources[i].Type,
			sources[i].DisplayName(),
			resources,
			window(&sources[i]),
		})
	}
	cmd.Println(renderTable([]string{"ID", "Type", "Name", "Resources", "Window"}, rows))
	return nil
}

func window(s *domain.Source) string {
	date := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.DateOnly)
	}
	if s.StartDate == nil && s.EndDate == nil {
		return "-"
	}
	return date(s.StartDate) + ".." + date(s.EndDate)
}
