package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// body is a request payload that can be sent more than once. A stream
// is seeked back to where it started before every send so that auth
// and redirect retries replay the same bytes.
type body struct {
	data   []byte
	stream io.ReadSeeker
	start  int64
	size   int64
}

func bytesBody(b []byte) *body {
	return &body{data: b, size: int64(len(b))}
}

// streamBody records the current offset of r as the replay point.
func streamBody(r io.ReadSeeker, size int64) (*body, error) {
	if size < 0 {
		return nil, fmt.Errorf("stream length must not be negative: %d", size)
	}

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating stream offset: %w", err)
	}

	return &body{stream: r, start: start, size: size}, nil
}

// reader rewinds the body and returns a reader the transport may close
// without closing the caller's stream.
func (b *body) reader() (io.ReadCloser, error) {
	if b.stream == nil {
		return io.NopCloser(bytes.NewReader(b.data)), nil
	}

	if _, err := b.stream.Seek(b.start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}

	return io.NopCloser(io.LimitReader(b.stream, b.size)), nil
}

// requestSpec is everything needed to (re)build one protocol request.
type requestSpec struct {
	verb   Verb
	target *url.URL
	header http.Header
	body   *body
}

// build instantiates an *http.Request for a single send.
func (s *requestSpec) build(ctx context.Context) (*http.Request, error) {
	method, err := s.verb.Method()
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	if s.body != nil {
		if rc, err = s.body.reader(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.target.String(), rc)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	if s.body != nil {
		req.ContentLength = s.body.size
		if s.body.size == 0 {
			req.Body = http.NoBody
		}
	}

	req.Header = s.header.Clone()

	return req, nil
}

// RequestOption is a functional option for a single operation.
type RequestOption func(*requestOpts) error

type requestOpts struct {
	header      http.Header
	depth       string
	overwrite   *bool
	contentType string
}

// WithHeader sets a header on the outgoing request, overriding any
// client-wide value for the same key.
func WithHeader(key, value string) RequestOption {
	return func(opts *requestOpts) error {
		if key == "" {
			return fmt.Errorf("header key must not be empty")
		}
		if opts.header == nil {
			opts.header = make(http.Header)
		}
		opts.header.Set(key, value)

		return nil
	}
}

// WithDepth sets the Depth header: "0", "1" or "infinity".
func WithDepth(depth string) RequestOption {
	return func(opts *requestOpts) error {
		switch depth {
		case "0", "1", "infinity":
		default:
			return fmt.Errorf("invalid depth %q", depth)
		}
		opts.depth = depth

		return nil
	}
}

// WithOverwrite sets the Overwrite header of COPY and MOVE.
func WithOverwrite(overwrite bool) RequestOption {
	return func(opts *requestOpts) error {
		opts.overwrite = &overwrite

		return nil
	}
}

// WithContentType sets the Content-Type of a PUT body.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return fmt.Errorf("cannot use empty content type")
		}
		opts.contentType = contentType

		return nil
	}
}

func applyRequestOpts(optFns []RequestOption) (requestOpts, error) {
	var opts requestOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return requestOpts{}, fmt.Errorf("applying request option: %w", err)
		}
	}

	return opts, nil
}
