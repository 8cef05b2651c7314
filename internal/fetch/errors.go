// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidURL is returned for URLs that cannot be requested at all.
var ErrInvalidURL = errors.New("invalid URL")

// TransportError reports a failed transfer: the connection could not be
// made, was dropped, or the body ended early. Attempts counts the requests
// issued before giving up.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s (after %d attempts): %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a completed transfer with a non-success status.
// It is terminal and never retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a StatusError for HTTP 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
