// Command tidemark extracts records incrementally from provider REST APIs.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/custodia-labs/tidemark/internal/adapters/driven/auth"
	"github.com/custodia-labs/tidemark/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tidemark/internal/adapters/driven/sink/jsonl"
	"github.com/custodia-labs/tidemark/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tidemark/internal/adapters/driving/cli"
	"github.com/custodia-labs/tidemark/internal/connectors"
	"github.com/custodia-labs/tidemark/internal/connectors/rest"
	"github.com/custodia-labs/tidemark/internal/core/ports/driving"
	"github.com/custodia-labs/tidemark/internal/core/services"
	"github.com/custodia-labs/tidemark/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Bootstrap = bootstrap

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(settings cli.Settings) (cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore(settings.ConfigDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("load config: %w", err)
	}
	configDir := filepath.Dir(configStore.Path())

	if settings.LogFile == "" {
		if path := configStore.GetString(file.KeyLogFile); path != "" {
			if err := logger.SetLogFile(path); err != nil {
				return cli.Services{}, nil, fmt.Errorf("open log file: %w", err)
			}
		}
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return cli.Services{}, nil, fmt.Errorf("open state store: %w", err)
	}

	timeout := configStore.GetDuration(file.KeyHTTPTimeout)
	if timeout <= 0 {
		timeout = rest.DefaultTimeout
	}

	connectorFactory := services.NewConnectorFactory(auth.NewFactory())
	connectors.RegisterBuiltins(connectorFactory, rest.WithHTTPClient(&http.Client{Timeout: timeout}))
	registry := services.NewConnectorRegistry(connectorFactory)

	sourceStore := file.NewSourceStore(configDir)
	sink := jsonl.New(configStore.GetString(file.KeyOutputDir))

	syncOrch := services.NewSyncOrchestrator(
		sourceStore,
		store.SyncStateStore(),
		store.RunStore(),
		connectorFactory,
		sink,
	)

	logger.Debug("config: %s, sources: %s, output: %s, http timeout: %s",
		configStore.Path(), sourceStore.Path(), configStore.GetString(file.KeyOutputDir), timeout.Round(time.Second))

	svc := cli.Services{
		Sync:       syncOrch,
		State:      services.NewStateService(store.SyncStateStore(), store.RunStore()),
		Connectors: registry,
		Sources:    services.NewSourceService(sourceStore, registry),
		Config:     configStore,
		Scheduler: func(interval time.Duration, opts driving.SyncOptions) driving.Scheduler {
			return services.NewScheduler(interval, syncOrch, opts)
		},
	}

	closer := func() error {
		return multierr.Combine(sink.Close(), store.Close())
	}
	return svc, closer, nil
}
