// Package normalisers holds the record normalisers applied between
// extraction and the sink. Each normaliser canonicalises one kind of
// value (timestamps, currency, identifiers) across providers.
package normalisers
