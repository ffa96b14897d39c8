// Package services implements the driving port interfaces.
// Services hold the sync logic and orchestrate calls to driven ports
// (connectors, stores, sinks).
package services
