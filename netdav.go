// Package netdav exposes the WebDAV client builder.
package netdav

import (
	"github.com/adamwoolhether/netdav/client"
)

// NewClient instantiates a new *Client for baseURL with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(baseURL string, opts ...client.Option) (*client.Client, error) {
	return client.Build(baseURL, opts...)
}
