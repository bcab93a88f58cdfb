package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adamwoolhether/netdav/client/davxml"
	"github.com/adamwoolhether/netdav/client/throttle"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client         *http.Client
	rt             http.RoundTripper
	timeout        *time.Duration
	connectTimeout time.Duration
	readTimeout    time.Duration
	userAgent      string
	throttle       *throttle.Config
	logger         *slog.Logger
	tracer         trace.Tracer
	user           string
	password       string
	hasCreds       bool
	headers        http.Header
	disableBasic   bool
}

// WithClient replaces the default [http.Client] used by the [Client].
// Its CheckRedirect is overridden: redirects are followed by the client
// itself so that the same-origin policy and retry budget apply.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithConnectTimeout bounds dialing a connection. It only applies to the
// transport built by [Build], not to one given via [WithTransport].
func WithConnectTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("connect timeout must not be negative")
		}
		c.connectTimeout = d
		return nil
	}
}

// WithReadTimeout bounds waiting for response headers. It only applies
// to the transport built by [Build], not to one given via [WithTransport].
func WithReadTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("read timeout must not be negative")
		}
		c.readTimeout = d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to record a span per request.
// A no-op tracer is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithCredentials sets the user and password answered to basic or
// digest challenges. Requests are first sent anonymously.
func WithCredentials(user, password string) Option {
	return func(c *options) error {
		if user == "" {
			return errors.New("user must not be empty")
		}
		c.user = user
		c.password = password
		c.hasCreds = true
		return nil
	}
}

// WithHeaders merges the given headers into every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *options) error {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		for k, v := range headers {
			c.headers.Set(k, v)
		}
		return nil
	}
}

// WithDisableBasicAuth refuses basic challenges, forcing digest.
func WithDisableBasicAuth() Option {
	return func(c *options) error {
		c.disableBasic = true
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// PropfindOption is a functional option for [Client.Propfind].
type PropfindOption func(*propfindOpts) error

type propfindOpts struct {
	body    []byte
	request []RequestOption
}

// WithACL requests the access control properties instead of allprop.
func WithACL() PropfindOption {
	return func(opts *propfindOpts) error {
		opts.body = davxml.PropfindACL()
		return nil
	}
}

// WithPropfindBody sends a caller supplied propfind document.
func WithPropfindBody(doc string) PropfindOption {
	return func(opts *propfindOpts) error {
		if doc == "" {
			return errors.New("propfind body must not be empty")
		}
		opts.body = []byte(doc)
		return nil
	}
}

// WithRequestOptions forwards request options, such as [WithDepth].
func WithRequestOptions(optFns ...RequestOption) PropfindOption {
	return func(opts *propfindOpts) error {
		opts.request = append(opts.request, optFns...)
		return nil
	}
}
