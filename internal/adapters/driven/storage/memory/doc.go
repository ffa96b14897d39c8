// Package memory provides in-memory stores for tests and ephemeral runs.
// Nothing survives the process.
package memory
