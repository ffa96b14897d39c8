package driven

import "github.com/custodia-labs/tidemark/internal/core/domain"

// Normaliser rewrites provider-specific field representations of a record
// into canonical form, in place. Normalising a record twice must give the
// same result as normalising it once.
type Normaliser interface {
	Normalise(rec domain.Record) error
}
