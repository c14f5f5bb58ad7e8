package kinopoisk

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded marks a quota or auth rejection from the catalog API.
// Once it surfaces, callers stop all remote lookups for the rest of the run
// instead of hammering a dead key.
var ErrQuotaExceeded = errors.New("kinopoisk quota exceeded or key rejected")

// APIError is a non-quota HTTP failure from the catalog API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kinopoisk API returned status %d: %s", e.StatusCode, e.Body)
}

// IsQuotaExceeded reports whether err carries the quota sentinel.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
