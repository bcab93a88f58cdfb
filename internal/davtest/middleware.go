package davtest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"
)

// Logger logs the start and end of every request.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := GetValues(ctx)

			log.Debug("request started", "method", r.Method, "path", r.URL.Path, "request_id", v.RequestID)

			err := handler(ctx, w, r)

			log.Debug("request completed", "method", r.Method, "path", r.URL.Path, "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return m
}

// Panics recovers from panics if they occur.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Counter tallies received requests by method.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
	total  int
}

// Count returns how many requests with method were received.
func (c *Counter) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[method]
}

// Total returns how many requests were received.
func (c *Counter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.total
}

// Reset zeroes every count.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counts = nil
	c.total = 0
}

func (c *Counter) add(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[method]++
	c.total++
}

// Count records each request in c.
func Count(c *Counter) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			c.add(r.Method)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Redirects answers requests for a registered path with a redirect to
// its target, which may be a path or an absolute URL.
func Redirects(rules map[string]string, code int) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			target, ok := rules[r.URL.Path]
			if !ok {
				return handler(ctx, w, r)
			}

			w.Header().Set("Location", target)
			w.WriteHeader(code)

			return nil
		}
		return h
	}
	return m
}
