package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/adamwoolhether/netdav/client/davxml"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

// execFn consumes the body of a successful response.
type execFn func(response *http.Response) error

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [ServerError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")

	// ErrAuthenticationRequired is returned on a 401 when the client has no credentials.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAuthenticationRejected is returned on a 401 for a request that
	// already carried an Authorization header.
	ErrAuthenticationRejected = errors.New("authentication rejected")

	// ErrUnsupportedAuthScheme is returned when a challenge names no scheme
	// the client can answer.
	ErrUnsupportedAuthScheme = errors.New("unsupported authentication scheme")

	// ErrCrossOriginRedirect is returned when a redirect leaves the client's
	// scheme, host and port.
	ErrCrossOriginRedirect = errors.New("cross-origin redirect")

	// ErrTooManyRedirects is returned once the combined redirect and
	// authentication retry budget is spent.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrMalformedResponse is returned when a listing body cannot be parsed at all.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnsupportedVerb is returned for a verb outside the WebDAV set.
	ErrUnsupportedVerb = errors.New("unsupported verb")

	// ErrCrossOriginLocation is returned when a path, destination or new
	// base location would change scheme, host or port.
	ErrCrossOriginLocation = errors.New("location must keep scheme, host and port")
)

// ServerError is returned when the server answers with a status that
// is neither success, challenge nor redirect.
type ServerError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
	Err        error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s %s: %v: %d, body: %s", e.Method, e.Path, e.Err, e.StatusCode, e.Body)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a [ServerError] carrying 404.
func IsNotFound(err error) bool {
	se, ok := errors.AsType[*ServerError](err)
	return ok && se.StatusCode == http.StatusNotFound
}

// StatusCode extracts the status of a [ServerError], or 0.
func StatusCode(err error) int {
	var se *ServerError
	if !errors.As(err, &se) {
		return 0
	}

	return se.StatusCode
}

func malformed(path string, err error) error {
	if errors.Is(err, davxml.ErrMalformed) {
		return fmt.Errorf("%s: %w: %w", path, ErrMalformedResponse, err)
	}

	return fmt.Errorf("%s: %w", path, err)
}
