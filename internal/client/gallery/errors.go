package gallery

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError is returned when a request got no response at all:
// the server is down, the connection was reset or the context ended.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: no response from server: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause walk through the network error.
func (e *NetworkError) Cause() error {
	return e.Err
}

// HTTPError is returned when the server answered with a non-2xx status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Body)
}

// IsNetworkError reports whether err (or anything it wraps) is a *NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// AsHTTPError extracts the *HTTPError wrapped in err, if any.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
