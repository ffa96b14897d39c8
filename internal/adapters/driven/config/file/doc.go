// Package file provides TOML-backed implementations of driven port
// interfaces. These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: settings in config.toml, addressed by dot keys
//   - SourceStore: source definitions in sources.toml
package file
