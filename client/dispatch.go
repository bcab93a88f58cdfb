package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// maxRetries is the budget shared by authentication and redirect
// retries of a single dispatch.
const maxRetries = 10

// Response is the outcome of a successful request. Body is empty when
// the body was handed to a stream consumer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// dispatch sends spec, answering authentication challenges and
// following same-origin redirects until a terminal response. fn, when
// set, consumes the body of the final successful response; otherwise
// the body is buffered into the returned Response.
func (c *Client) dispatch(ctx context.Context, spec *requestSpec, fn execFn) (*Response, error) {
	for retries := 0; ; retries++ {
		resp, sentAuth, err := c.send(ctx, spec, retries)
		if err != nil {
			return nil, err
		}

		switch code := resp.StatusCode; {
		case code >= 200 && code < 300:
			c.lastStatus = code
			return c.finish(resp, fn)

		case code == http.StatusUnauthorized:
			challenges := resp.Header.Values("WWW-Authenticate")
			c.discard(resp)

			switch {
			case !c.auth.hasCreds:
				c.lastStatus = code
				return nil, fmt.Errorf("%s %s: %w", spec.verb, spec.target.Path, ErrAuthenticationRequired)
			case sentAuth:
				c.lastStatus = code
				return nil, fmt.Errorf("%s %s: %w", spec.verb, spec.target.Path, ErrAuthenticationRejected)
			}

			if err := c.auth.absorb(challenges); err != nil {
				c.lastStatus = code
				return nil, fmt.Errorf("%s %s: %w", spec.verb, spec.target.Path, err)
			}

		case isRedirect(code) && resp.Header.Get("Location") != "":
			location := resp.Header.Get("Location")
			c.discard(resp)

			next, err := resolve(spec.target, location)
			if err != nil {
				c.lastStatus = code
				return nil, fmt.Errorf("%s %s: redirect: %w", spec.verb, spec.target.Path, err)
			}

			if !sameOrigin(c.base, next) {
				c.lastStatus = code
				return nil, fmt.Errorf("%s %s: %w: %s", spec.verb, spec.target.Path, ErrCrossOriginRedirect, next.Redacted())
			}

			c.logger.Debug("following redirect", "method", spec.verb.String(), "from", spec.target.Path, "to", next.Path)
			spec.target = next

		default:
			c.lastStatus = code
			defer c.discard(resp)

			return nil, c.serverError(spec, resp)
		}

		if retries == maxRetries {
			c.lastStatus = resp.StatusCode
			return nil, fmt.Errorf("%s %s: %w: %d retries", spec.verb, spec.target.Path, ErrTooManyRedirects, maxRetries)
		}
	}
}

// send performs one round trip. It reports whether the request carried
// an Authorization header.
func (c *Client) send(ctx context.Context, spec *requestSpec, attempt int) (*http.Response, bool, error) {
	method, err := spec.verb.Method()
	if err != nil {
		return nil, false, err
	}

	ctx, span := c.tracer.Start(ctx, "netdav."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("path", spec.target.Path),
		attribute.Int("attempt", attempt),
	)

	req, err := spec.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if req.Header.Get("Authorization") == "" {
		if value, ok := c.auth.credentialsFor(method, requestURI(spec.target)); ok {
			req.Header.Set("Authorization", value)
		}
	}
	sentAuth := req.Header.Get("Authorization") != ""

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.c.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("exec http do: %w", err)
	}

	span.SetAttributes(attribute.Int("status", resp.StatusCode))
	c.logger.Debug("dispatch", "method", method, "path", spec.target.Path, "status", resp.StatusCode, "attempt", attempt)

	return resp, sentAuth, nil
}

// finish hands the body of a final response to fn, or buffers it.
func (c *Client) finish(resp *http.Response, fn execFn) (*Response, error) {
	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	if fn != nil {
		if err := fn(resp); err != nil {
			discardBody = false
			return nil, fmt.Errorf("exec fn: %w", err)
		}

		return out, nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		discardBody = false
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	out.Body = b

	return out, nil
}

func (c *Client) serverError(spec *requestSpec, resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}

	return &ServerError{
		StatusCode: resp.StatusCode,
		Method:     spec.verb.String(),
		Path:       spec.target.Path,
		Body:       string(b),
		Err:        ErrUnexpectedStatusCode,
	}
}

// discard drains and closes a body that will not be used.
func (c *Client) discard(resp *http.Response) {
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrBodySize)); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}
