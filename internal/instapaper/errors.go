package instapaper

import (
	"errors"
	"fmt"
)

// ErrAuthentication marks failures obtaining or parsing an access token.
// Check with errors.Is.
var ErrAuthentication = errors.New("authentication failed")

// APIError is returned for any non-200 API response or unparsable payload.
// It carries the operation name and, when available, the HTTP status code.
type APIError struct {
	Op         string // ex: "authenticate", "add bookmark", "list bookmarks"
	StatusCode int    // 0 when the request never reached the server
	Message    string
	Err        error // sentinel to unwrap to (ex: ErrAuthentication), may be nil
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("instapaper: %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("instapaper: %s failed: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }
