// Package googleanalytics extracts Google Analytics 4 reports through the
// Analytics Data API.
//
// The connector authenticates with a service account token holder that is
// bridged to the oauth2.TokenSource the generated client expects. Reports
// are paged by offset; metrics are converted to their declared types and
// date dimensions to timestamps.
package googleanalytics
