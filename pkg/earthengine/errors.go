package earthengine

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoData indicates that a collection query matched zero images for the
// requested bounds and date range. Callers are expected to treat this as a
// normal outcome and render a placeholder, not as a failure.
var ErrNoData = eris.New("earthengine: no images match the requested filters")

// APIError is returned when the engine rejects a request with a non-2xx
// status. The body is preserved because the engine encodes quota and
// expression errors as JSON messages.
type APIError struct {
	StatusCode int
	Body       string
	Op         string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("earthengine: %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying: throttling and
// server-side errors are; expression and auth errors are not.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}
