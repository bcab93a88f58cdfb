// Package throttle rate-limits the round trips of a WebDAV client with a
// token bucket from [golang.org/x/time/rate].
//
// Every send counts, so a PROPFIND that is answered with a challenge and
// then a redirect consumes three tokens:
//
//	rt, err := throttle.NewRoundTripper(10, 5, func() *slog.Logger { return slog.Default() }, http.DefaultTransport)
//
// A request blocks until a token is available or its context ends.
package throttle
