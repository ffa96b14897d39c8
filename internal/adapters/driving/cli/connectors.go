package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors [type]",
	Short: "List connector types",
	Long: `Lists the built-in connector types with their resources and auth method.
With a type argument, shows the config keys a source of that type takes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnectors,
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

func runConnectors(cmd *cobra.Command, args []string) error {
	if connectorRegistry == nil {
		return notConfigured("connector registry")
	}

	if len(args) == 1 {
		return describeConnector(cmd, args[0])
	}

	types := connectorRegistry.List()
	rows := make([][]string, 0, len(types))
	for i := range types {
		rows = append(rows, []string{
			types[i].ID,
			types[i].Name,
			string(types[i].Auth.Method),
			strings.Join(types[i].Resources, ", "),
		})
	}
	cmd.Println(renderTable([]string{"Type", "Name", "Auth", "Resources"}, rows))
	return nil
}

func describeConnector(cmd *cobra.Command, id string) error {
	def, err := connectorRegistry.Get(id)
	if err != nil {
		return fmt.Errorf("unknown connector type %q: %w", id, err)
	}

	cmd.Printf("%s (%s)\n", def.Name, def.ID)
	if def.Description != "" {
		cmd.Printf("%s\n", def.Description)
	}
	cmd.Println()

	rows := make([][]string, 0, len(def.ConfigKeys))
	for _, key := range def.ConfigKeys {
		var flags []string
		if key.Required {
			flags = append(flags, "required")
		}
		if key.Secret {
			flags = append(flags, "secret")
		}
		rows = append(rows, []string{key.Key, key.Description, key.Default, strings.Join(flags, ", ")})
	}
	cmd.Println(renderTable([]string{"Key", "Description", "Default", ""}, rows))
	return nil
}
