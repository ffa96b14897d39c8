package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/custodia-labs/tidemark/internal/core/ports/driven"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
	"github.com/custodia-labs/tidemark/internal/logger"
)

// Settings are the persistent flag values after env and defaults apply.
type Settings struct {
	Verbose   bool
	ConfigDir string
	DataDir   string
	LogFile   string
}

// Services are the ports the commands drive.
type Services struct {
	Sync       driving.SyncOrchestrator
	State      driving.StateService
	Connectors driving.ConnectorRegistry
	Sources    driving.SourceService
	Config     driven.ConfigStore

	// Scheduler builds the loop behind sync --every.
	Scheduler func(interval time.Duration, opts driving.SyncOptions) driving.Scheduler
}

// BootstrapFunc builds the services for a command run. The returned
// closer runs when Execute returns.
type BootstrapFunc func(Settings) (Services, func() error, error)

var (
	version = "dev"

	// Bootstrap is assigned by the composition root.
	Bootstrap BootstrapFunc

	syncOrchestrator  driving.SyncOrchestrator
	stateService      driving.StateService
	connectorRegistry driving.ConnectorRegistry
	sourceService     driving.SourceService
	configStore       driven.ConfigStore
	newScheduler      func(time.Duration, driving.SyncOptions) driving.Scheduler

	closer func() error
)

var rootCmd = &cobra.Command{
	Use:   "tidemark",
	Short: "Incremental extraction from REST APIs",
	Long: `tidemark pulls records from provider REST APIs into JSONL files.

Each run resumes from the watermark stored for every source resource,
so only records changed since the last successful run are fetched.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Print debug output")
	flags.String("config-dir", "", "Directory holding config.toml and sources.toml (default ~/.tidemark)")
	flags.String("data-dir", "", "Directory holding the state database (default ~/.tidemark/data)")
	flags.String("log-file", "", "Also write logs to this file, rotated by size")

	for _, name := range []string{"verbose", "config-dir", "data-dir", "log-file"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("TIDEMARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices assigns the ports used by the commands.
func SetServices(s Services) {
	syncOrchestrator = s.Sync
	stateService = s.State
	connectorRegistry = s.Connectors
	sourceService = s.Sources
	configStore = s.Config
	newScheduler = s.Scheduler
}

// Execute runs the root command, then releases what the bootstrap
// opened. The closer runs even when the command fails.
func Execute() error {
	err := rootCmd.Execute()
	if closeErr := Close(); closeErr != nil {
		logger.Error("close: %v", closeErr)
		err = multierr.Append(err, closeErr)
	}
	return err
}

// Close runs the bootstrap closer at most once.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

// CurrentSettings reads the persistent settings through viper.
func CurrentSettings() Settings {
	return Settings{
		Verbose:   viper.GetBool("verbose"),
		ConfigDir: viper.GetString("config-dir"),
		DataDir:   viper.GetString("data-dir"),
		LogFile:   viper.GetString("log-file"),
	}
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	settings := CurrentSettings()
	logger.SetVerbose(settings.Verbose)
	logger.SetOutput(cmd.ErrOrStderr())
	if settings.LogFile != "" {
		if err := logger.SetLogFile(settings.LogFile); err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
	}

	if Bootstrap == nil || cmd == versionCmd {
		return nil
	}
	services, done, err := Bootstrap(settings)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(services)
	closer = done
	return nil
}

func notConfigured(service string) error {
	return errors.New(service + " service not configured")
}
