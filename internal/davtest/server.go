// Package davtest runs an in-memory WebDAV server for tests. It is
// backed by golang.org/x/net/webdav and can challenge for basic or
// digest credentials, redirect paths and count requests.
package davtest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/webdav"
)

// Server is a WebDAV server listening on a loopback address.
type Server struct {
	URL string

	t      testing.TB
	srv    *httptest.Server
	fs     webdav.FileSystem
	count  *Counter
	auth   *authenticator
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a [Server].
type Option func(*options)

type options struct {
	user      string
	password  string
	scheme    Scheme
	noQOP     bool
	redirects map[string]string
	redirCode int
	failures  map[string]int
	mw        []Middleware
	logger    *slog.Logger
	tracer    trace.Tracer
}

// WithCredentials requires user and password, offered through scheme.
func WithCredentials(user, password string, scheme Scheme) Option {
	return func(opts *options) {
		opts.user = user
		opts.password = password
		opts.scheme = scheme
	}
}

// WithDigestNoQOP issues digest challenges without qop, the RFC 2069 form.
func WithDigestNoQOP() Option {
	return func(opts *options) {
		opts.noQOP = true
	}
}

// WithRedirect answers requests for from with a redirect to to.
func WithRedirect(from, to string) Option {
	return func(opts *options) {
		if opts.redirects == nil {
			opts.redirects = make(map[string]string)
		}
		opts.redirects[from] = to
	}
}

// WithRedirectCode sets the redirect status, 302 by default.
func WithRedirectCode(code int) Option {
	return func(opts *options) {
		opts.redirCode = code
	}
}

// WithFailure answers every request for path with code.
func WithFailure(path string, code int) Option {
	return func(opts *options) {
		if opts.failures == nil {
			opts.failures = make(map[string]int)
		}
		opts.failures[path] = code
	}
}

// WithMiddleware runs mw just before the WebDAV handler.
func WithMiddleware(mw ...Middleware) Option {
	return func(opts *options) {
		opts.mw = append(opts.mw, mw...)
	}
}

// WithLogger sets the logger; output is discarded otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = log
	}
}

// WithTracer sets the tracer used for server spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) {
		opts.tracer = tracer
	}
}

// New starts a Server that is closed when the test ends.
func New(t testing.TB, optFns ...Option) *Server {
	t.Helper()

	opts := options{redirCode: http.StatusFound}
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	s := &Server{
		t:      t,
		fs:     webdav.NewMemFS(),
		count:  &Counter{},
		logger: opts.logger,
		tracer: opts.tracer,
	}

	dav := &webdav.Handler{
		FileSystem: s.fs,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				s.logger.Debug("webdav", "method", r.Method, "path", r.URL.Path, "error", err)
			}
		},
	}

	mw := []Middleware{Logger(s.logger), Panics(), Count(s.count)}
	if len(opts.redirects) > 0 {
		mw = append(mw, Redirects(opts.redirects, opts.redirCode))
	}
	if opts.scheme != 0 {
		s.auth = newAuthenticator(opts.user, opts.password, opts.scheme, opts.noQOP)
		mw = append(mw, s.auth.Auth())
	}
	if len(opts.failures) > 0 {
		mw = append(mw, failures(opts.failures))
	}
	mw = append(mw, opts.mw...)

	s.srv = httptest.NewServer(s.serve(adapt(dav), mw))
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)

	return s
}

// Requests returns the request counter.
func (s *Server) Requests() *Counter {
	return s.count
}

// DigestUses lists the accepted digest headers in arrival order.
func (s *Server) DigestUses() []DigestUse {
	if s.auth == nil {
		return nil
	}

	return s.auth.digestUses()
}

// Mkdir creates a collection, failing the test on error.
func (s *Server) Mkdir(name string) {
	s.t.Helper()

	if err := s.fs.Mkdir(context.Background(), name, 0o755); err != nil {
		s.t.Fatalf("davtest: mkdir %s: %v", name, err)
	}
}

// WriteFile stores content at name, failing the test on error.
func (s *Server) WriteFile(name, content string) {
	s.t.Helper()

	f, err := s.fs.OpenFile(context.Background(), name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		s.t.Fatalf("davtest: open %s: %v", name, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, content); err != nil {
		s.t.Fatalf("davtest: write %s: %v", name, err)
	}
}

// ReadFile returns the content stored at name.
func (s *Server) ReadFile(name string) (string, error) {
	f, err := s.fs.OpenFile(context.Background(), name, os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Exists reports whether name is present.
func (s *Server) Exists(name string) bool {
	_, err := s.fs.Stat(context.Background(), name)
	return err == nil
}

func failures(paths map[string]int) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if code, ok := paths[r.URL.Path]; ok {
				http.Error(w, http.StatusText(code), code)
				return nil
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
