package client_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/adamwoolhether/netdav/client"
)

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func build(t *testing.T, baseURL string, optFns ...client.Option) *client.Client {
	t.Helper()

	c, err := client.Build(baseURL, append([]client.Option{client.WithLogger(discardLogger())}, optFns...)...)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	return c
}

// entry is one response of a canned multistatus listing.
type entry struct {
	href string
	dir  bool
	size int
}

func multistatus(entries ...entry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`)
	for _, e := range entries {
		b.WriteString(`<D:response><D:href>` + e.href + `</D:href><D:propstat><D:prop>`)
		if e.dir {
			b.WriteString(`<D:resourcetype><D:collection/></D:resourcetype>`)
		} else {
			fmt.Fprintf(&b, `<D:resourcetype/><D:getcontentlength>%d</D:getcontentlength>`, e.size)
		}
		b.WriteString(`</D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>`)
	}
	b.WriteString(`</D:multistatus>`)

	return b.String()
}

// recorder counts requests per method and path.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, req.Method+" "+req.URL.Path)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) int {
	var n int
	for _, c := range r.list() {
		if c == call {
			n++
		}
	}

	return n
}
