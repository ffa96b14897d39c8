// Package appstore extracts App Store Connect analytics reports.
//
// Reports are reached through a chain of JSON:API listings: an app's
// ongoing report request, the named report, its daily instances and each
// instance's segments. Segments are gzip compressed TSV files behind
// pre-signed URLs and are downloaded without credentials.
package appstore
