package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"regexp"
)

// FindOption is a functional option for [Client.Find] and [Client.Walk].
type FindOption func(*findOpts) error

type findOpts struct {
	recursive      bool
	filename       string
	pattern        *regexp.Regexp
	suppressErrors bool
}

// WithRecursive descends into every collection found.
func WithRecursive() FindOption {
	return func(opts *findOpts) error {
		opts.recursive = true
		return nil
	}
}

// WithFilename only yields files whose last path segment equals name.
// Collections are still descended but never yielded.
func WithFilename(name string) FindOption {
	return func(opts *findOpts) error {
		if name == "" {
			return errors.New("filename must not be empty")
		}
		opts.filename = name
		return nil
	}
}

// WithFilenamePattern only yields files whose last path segment matches re.
// Collections are still descended but never yielded.
func WithFilenamePattern(re *regexp.Regexp) FindOption {
	return func(opts *findOpts) error {
		if re == nil {
			return errors.New("pattern must not be nil")
		}
		opts.pattern = re
		return nil
	}
}

// WithSuppressErrors logs a failed listing and skips that branch
// instead of ending the walk.
func WithSuppressErrors() FindOption {
	return func(opts *findOpts) error {
		opts.suppressErrors = true
		return nil
	}
}

func (o findOpts) filtered() bool {
	return o.filename != "" || o.pattern != nil
}

func (o findOpts) accept(name string) bool {
	if !o.filtered() {
		return true
	}

	return name == o.filename || (o.pattern != nil && o.pattern.MatchString(name))
}

// frame is one listed collection whose entries are being emitted.
// self holds the queried path and, after a redirect, the path that
// answered; entries matching either are the collection itself.
type frame struct {
	self  [2]string
	items []*Item
	next  int
}

func (f *frame) isSelf(it *Item) bool {
	p := trimSlash(it.URL.Path)
	return p == f.self[0] || p == f.self[1]
}

// Walker lists a tree depth first, one collection at a time. Items are
// produced in pre-order and siblings keep the server's order. A
// collection is only listed once the walk reaches it, so abandoning a
// Walker stops all further requests.
//
//	w := c.Walk(ctx, "/docs/", client.WithRecursive())
//	for w.Next() {
//		fmt.Println(w.Item())
//	}
//	if err := w.Err(); err != nil {
//		...
//	}
type Walker struct {
	c       *Client
	ctx     context.Context
	opts    findOpts
	stack   []*frame
	pending *url.URL
	item    *Item
	err     error
}

// Walk returns a Walker rooted at path. Every Walk queries the server
// afresh.
func (c *Client) Walk(ctx context.Context, path string, optFns ...FindOption) *Walker {
	w := &Walker{c: c, ctx: ctx}

	for _, opt := range optFns {
		if err := opt(&w.opts); err != nil {
			w.err = fmt.Errorf("applying find option: %w", err)
			return w
		}
	}

	root, err := c.sameOriginTarget(path)
	if err != nil {
		w.err = err
		return w
	}
	w.pending = root

	return w
}

// Find yields the items below path. Breaking out of the loop ends the
// walk. A failure is yielded once, as the last pair.
//
// Each listed href is resolved against the URL that answered the
// listing, so a relative href inside a redirected collection points
// below the redirect target rather than below the base location. Hrefs
// on another scheme, host or port are skipped.
func (c *Client) Find(ctx context.Context, path string, optFns ...FindOption) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		w := c.Walk(ctx, path, optFns...)
		for w.Next() {
			if !yield(w.Item(), nil) {
				return
			}
		}

		if err := w.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Next advances to the next item. It returns false when the walk is
// complete or has failed; check Err to tell them apart.
func (w *Walker) Next() bool {
	w.item = nil
	if w.err != nil {
		return false
	}

	for {
		if w.pending != nil {
			u := w.pending
			w.pending = nil
			if err := w.expand(u); err != nil {
				w.err = err
				w.stack = nil
				return false
			}
			continue
		}

		if len(w.stack) == 0 {
			return false
		}

		top := w.stack[len(w.stack)-1]
		if top.next >= len(top.items) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		it := top.items[top.next]
		top.next++

		if top.isSelf(it) {
			continue
		}

		if it.Kind == KindDirectory {
			if w.opts.recursive {
				w.pending = it.URL
			}
			if w.opts.filtered() {
				continue
			}

			w.item = it
			return true
		}

		if !w.opts.accept(it.Name()) {
			continue
		}

		w.item = it
		return true
	}
}

// Item returns the item produced by the last call to Next.
func (w *Walker) Item() *Item {
	return w.item
}

// Err returns the error that ended the walk, if any.
func (w *Walker) Err() error {
	return w.err
}

// expand lists u and pushes its entries. A suppressed failure leaves
// the stack untouched.
func (w *Walker) expand(u *url.URL) error {
	if err := w.ctx.Err(); err != nil {
		return fmt.Errorf("find %s: %w", u.Path, err)
	}

	ms, answered, err := w.c.propfind(w.ctx, u.String(), []PropfindOption{WithRequestOptions(WithDepth("1"))})
	if err != nil {
		if w.opts.suppressErrors {
			w.c.logger.Warn("skipping unreadable collection", "path", u.Path, "error", err)
			return nil
		}

		return fmt.Errorf("find %s: %w", u.Path, err)
	}

	entries := ms.Entries()
	f := &frame{
		self:  [2]string{trimSlash(u.Path), trimSlash(answered.Path)},
		items: make([]*Item, 0, len(entries)),
	}

	for _, e := range entries {
		it, err := newItem(w.c, answered, e)
		if err != nil {
			w.c.logger.Debug("skipping listing entry", "path", u.Path, "href", e.Href, "error", err)
			continue
		}
		f.items = append(f.items, it)
	}

	w.stack = append(w.stack, f)

	return nil
}
