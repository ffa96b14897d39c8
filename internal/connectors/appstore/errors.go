package appstore

import (
	"fmt"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

// Setup errors. All wrap domain.ErrConfiguration and are raised before
// any record is emitted.
var (
	// ErrNoOngoingReportRequests means the app has no ONGOING report
	// request that is still active. One must be created in App Store Connect.
	ErrNoOngoingReportRequests = fmt.Errorf("%w: no ongoing analytics report request", domain.ErrConfiguration)

	// ErrNoSuchReport means the report request does not offer the report.
	ErrNoSuchReport = fmt.Errorf("%w: no such report", domain.ErrConfiguration)

	// ErrNoReportsFound means no daily instance falls in the requested range.
	ErrNoReportsFound = fmt.Errorf("%w: no report instances found", domain.ErrConfiguration)
)
