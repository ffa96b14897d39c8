// Package connectors wires the built-in REST connectors into a
// ConnectorFactory. Each subpackage exposes a Definition describing the
// connector type and a Build function creating it from a source.
//
// Shared pagination, retry and watermark machinery lives in the rest
// subpackage.
package connectors
