// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Extracts records from a provider API
//   - ConnectorFactory: Creates connectors from source configuration
//   - Authenticator: Produces request headers for a provider
//   - AuthenticatorFactory: Builds authenticators from credentials
//   - SourceStore: Source configuration persistence
//   - SyncStateStore: Watermark persistence
//   - RunStore: Run history persistence
//   - RecordSink: Destination for extracted records
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - TokenProvider: Raw access tokens for SDK clients that manage their own headers.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
