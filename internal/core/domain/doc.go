// Package domain defines the core entities for Tidemark.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: A single provider record
//   - Page: An ordered batch of records plus an optional continuation
//   - Source: A configured connector instance
//   - Checkpoint: Per-resource watermarks persisted between runs
//   - SyncRun: The outcome of one resource extraction
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
