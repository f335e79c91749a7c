package blacklab

import "github.com/docusmart/blacklab/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrInterruptedSearch = domain.ErrInterruptedSearch
	ErrSearchTimeout     = domain.ErrSearchTimeout
	ErrIndexClosed       = domain.ErrIndexClosed
)
