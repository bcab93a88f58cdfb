package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/adamwoolhether/netdav/client/davxml"
	"github.com/adamwoolhether/netdav/client/download"
	"github.com/adamwoolhether/netdav/client/throttle"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Client issues WebDAV requests against a single origin. Relative paths
// resolve against its current base location.
//
// A Client is not safe for concurrent use: the accepted authentication
// scheme, the digest nonce count and the last status are mutated by
// every request.
type Client struct {
	c          *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	base       *url.URL
	headers    http.Header
	auth       *authNegotiator
	lastStatus int
}

// Build returns a Client for baseURL, which must be an http or https URL.
func Build(baseURL string, optFns ...Option) (*Client, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		c:       &http.Client{},
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("no-op tracer"),
		base:    base,
		headers: opts.headers,
	}

	if opts.client != nil {
		cpy := *opts.client
		client.c = &cpy
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	case opts.connectTimeout > 0 || opts.readTimeout > 0:
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.connectTimeout > 0 {
			t.DialContext = (&net.Dialer{Timeout: opts.connectTimeout}).DialContext
			t.TLSHandshakeTimeout = opts.connectTimeout
		}
		t.ResponseHeaderTimeout = opts.readTimeout
		transport = t
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	client.auth = newAuthNegotiator(opts.user, opts.password, opts.hasCreds, opts.disableBasic, client.logger)

	return client, nil
}

// Location returns a copy of the current base location.
func (c *Client) Location() *url.URL {
	u := *c.base
	return &u
}

// Cd changes the base location used to resolve relative paths. The new
// location must keep the scheme, host and port.
func (c *Client) Cd(path string) error {
	next, err := resolve(c.base, path)
	if err != nil {
		return err
	}

	if !sameOrigin(c.base, next) {
		return fmt.Errorf("%w: %s", ErrCrossOriginLocation, next.Redacted())
	}

	c.base = next

	return nil
}

// LastStatus returns the status code of the most recent terminal response.
func (c *Client) LastStatus() int {
	return c.lastStatus
}

// Do sends a request with the given verb and raw body and returns the
// buffered response. It is the general form behind the typed operations.
func (c *Client) Do(ctx context.Context, verb Verb, path string, payload []byte, optFns ...RequestOption) (*Response, error) {
	opts, err := applyRequestOpts(optFns)
	if err != nil {
		return nil, err
	}

	var b *body
	if payload != nil {
		b = bytesBody(payload)
	}

	spec, err := c.newSpec(verb, path, opts, b)
	if err != nil {
		return nil, err
	}

	return c.dispatch(ctx, spec, nil)
}

// Propfind retrieves properties of path. Without options it sends an
// allprop request with Depth 1.
func (c *Client) Propfind(ctx context.Context, path string, optFns ...PropfindOption) (*davxml.Multistatus, error) {
	ms, _, err := c.propfind(ctx, path, optFns)
	return ms, err
}

// propfind also returns the location that finally answered, which
// differs from path after a redirect.
func (c *Client) propfind(ctx context.Context, path string, optFns []PropfindOption) (*davxml.Multistatus, *url.URL, error) {
	var opts propfindOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, nil, fmt.Errorf("applying propfind option: %w", err)
		}
	}

	reqOpts, err := applyRequestOpts(append([]RequestOption{WithDepth("1")}, opts.request...))
	if err != nil {
		return nil, nil, err
	}
	reqOpts.contentType = davxml.ContentType

	payload := opts.body
	if payload == nil {
		payload = davxml.PropfindAllProp()
	}

	spec, err := c.newSpec(VerbPropfind, path, reqOpts, bytesBody(payload))
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.dispatch(ctx, spec, nil)
	if err != nil {
		return nil, nil, err
	}

	ms, err := davxml.ParseBytes(resp.Body)
	if err != nil {
		return nil, nil, malformed(spec.target.Path, err)
	}

	return ms, spec.target, nil
}

// Exists reports whether path exists, using a Depth 0 PROPFIND. A 404
// yields false; every other failure is returned.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.Propfind(ctx, path, WithRequestOptions(WithDepth("0")))
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Get returns the content of path.
func (c *Client) Get(ctx context.Context, path string, optFns ...RequestOption) ([]byte, error) {
	resp, err := c.Do(ctx, VerbGet, path, nil, optFns...)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GetStream copies the content of path to w as it is read. Nothing is
// written unless the server answered with success.
func (c *Client) GetStream(ctx context.Context, path string, w io.Writer, optFns ...RequestOption) (int64, error) {
	opts, err := applyRequestOpts(optFns)
	if err != nil {
		return 0, err
	}

	spec, err := c.newSpec(VerbGet, path, opts, nil)
	if err != nil {
		return 0, err
	}

	var n int64
	streamFn := func(resp *http.Response) error {
		copied, err := io.Copy(w, resp.Body)
		n = copied
		if err != nil {
			return fmt.Errorf("streaming body: %w", err)
		}

		return nil
	}

	if _, err := c.dispatch(ctx, spec, streamFn); err != nil {
		return n, err
	}

	return n, nil
}

// Download streams the content of path to destPath. Data streams to a
// temp file in the same directory, then the temp file is renamed to
// destPath on success or cleared on failure.
func (c *Client) Download(ctx context.Context, path, destPath string, optFns ...DownloadOption) error {
	if destPath == "" {
		return fmt.Errorf("destPath must not be empty")
	}

	spec, err := c.newSpec(VerbGet, path, requestOpts{}, nil)
	if err != nil {
		return err
	}

	dlFunc := func(resp *http.Response) error {
		src := download.Source{
			Path:          spec.target.Path,
			Body:          resp.Body,
			ContentLength: resp.ContentLength,
			Header:        resp.Header,
		}
		if err := download.Handle(ctx, src, destPath, c.logger, optFns...); err != nil {
			return fmt.Errorf("download: %w", err)
		}

		return nil
	}

	_, err = c.dispatch(ctx, spec, dlFunc)

	return err
}

// Put stores length bytes read from r at path. r is rewound to its
// current offset if the request has to be repeated.
func (c *Client) Put(ctx context.Context, path string, r io.ReadSeeker, length int64, optFns ...RequestOption) (*Response, error) {
	opts, err := applyRequestOpts(optFns)
	if err != nil {
		return nil, err
	}

	b, err := streamBody(r, length)
	if err != nil {
		return nil, err
	}

	spec, err := c.newSpec(VerbPut, path, opts, b)
	if err != nil {
		return nil, err
	}

	return c.dispatch(ctx, spec, nil)
}

// PutBytes stores content at path.
func (c *Client) PutBytes(ctx context.Context, path string, content []byte, optFns ...RequestOption) (*Response, error) {
	if content == nil {
		content = []byte{}
	}

	return c.Do(ctx, VerbPut, path, content, optFns...)
}

// PutString stores content at path.
func (c *Client) PutString(ctx context.Context, path, content string, optFns ...RequestOption) (*Response, error) {
	return c.PutBytes(ctx, path, []byte(content), optFns...)
}

// Mkdir creates a collection.
func (c *Client) Mkdir(ctx context.Context, path string, optFns ...RequestOption) (*Response, error) {
	return c.Do(ctx, VerbMkcol, path, nil, optFns...)
}

// Delete removes a resource or collection.
func (c *Client) Delete(ctx context.Context, path string, optFns ...RequestOption) (*Response, error) {
	return c.Do(ctx, VerbDelete, path, nil, optFns...)
}

// Move renames src to dst.
func (c *Client) Move(ctx context.Context, src, dst string, optFns ...RequestOption) (*Response, error) {
	return c.transfer(ctx, VerbMove, src, dst, optFns)
}

// Copy duplicates src at dst.
func (c *Client) Copy(ctx context.Context, src, dst string, optFns ...RequestOption) (*Response, error) {
	return c.transfer(ctx, VerbCopy, src, dst, optFns)
}

func (c *Client) transfer(ctx context.Context, verb Verb, src, dst string, optFns []RequestOption) (*Response, error) {
	dest, err := c.sameOriginTarget(dst)
	if err != nil {
		return nil, err
	}

	optFns = append([]RequestOption{WithHeader("Destination", dest.String())}, optFns...)

	return c.Do(ctx, verb, src, nil, optFns...)
}

// Proppatch sets the properties in snippet, for example
// `<D:displayname>report</D:displayname>`.
func (c *Client) Proppatch(ctx context.Context, path, snippet string, optFns ...RequestOption) (*Response, error) {
	optFns = append([]RequestOption{WithHeader("Content-Type", davxml.ContentType)}, optFns...)

	return c.Do(ctx, VerbProppatch, path, davxml.Proppatch(snippet), optFns...)
}

// Lock requests a write lock and returns the raw response; the token is
// in its Lock-Token header.
func (c *Client) Lock(ctx context.Context, path string, info davxml.LockInfo, optFns ...RequestOption) (*Response, error) {
	optFns = append([]RequestOption{WithHeader("Content-Type", davxml.ContentType)}, optFns...)

	return c.Do(ctx, VerbLock, path, info.Marshal(), optFns...)
}

// Unlock releases the lock identified by token.
func (c *Client) Unlock(ctx context.Context, path, token string, optFns ...RequestOption) (*Response, error) {
	if token == "" {
		return nil, fmt.Errorf("lock token must not be empty")
	}
	if !strings.HasPrefix(token, "<") {
		token = "<" + token + ">"
	}

	optFns = append([]RequestOption{WithHeader("Lock-Token", token)}, optFns...)

	return c.Do(ctx, VerbUnlock, path, nil, optFns...)
}

// sameOriginTarget resolves ref against the base location and rejects
// results on another scheme, host or port.
func (c *Client) sameOriginTarget(ref string) (*url.URL, error) {
	u, err := resolve(c.base, ref)
	if err != nil {
		return nil, err
	}

	if !sameOrigin(c.base, u) {
		return nil, fmt.Errorf("%w: %s", ErrCrossOriginLocation, u.Redacted())
	}

	return u, nil
}

// newSpec resolves path and merges client-wide and per-request headers.
func (c *Client) newSpec(verb Verb, path string, opts requestOpts, b *body) (*requestSpec, error) {
	if _, err := verb.Method(); err != nil {
		return nil, err
	}

	target, err := c.sameOriginTarget(path)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	for k, v := range c.headers {
		header[k] = append([]string(nil), v...)
	}
	for k, v := range opts.header {
		header[k] = append([]string(nil), v...)
	}
	if opts.depth != "" {
		header.Set("Depth", opts.depth)
	}
	if opts.overwrite != nil {
		header.Set("Overwrite", overwriteValue(*opts.overwrite))
	}
	if opts.contentType != "" {
		header.Set("Content-Type", opts.contentType)
	}

	return &requestSpec{
		verb:   verb,
		target: target,
		header: header,
		body:   b,
	}, nil
}

func overwriteValue(v bool) string {
	if v {
		return "T"
	}

	return "F"
}
