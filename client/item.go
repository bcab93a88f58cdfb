package client

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/adamwoolhether/netdav/client/davxml"
)

// Kind tells files and collections apart.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}

	return "file"
}

// Item is one resource produced by [Client.Find]. It keeps a reference to
// the client that listed it; content is fetched once and cached on the item.
type Item struct {
	URL   *url.URL
	Kind  Kind
	Props Props

	client  *Client
	content []byte
	loaded  bool
}

// newItem resolves the entry's href against the listing that returned
// it. Hrefs pointing off the client's origin are rejected.
func newItem(c *Client, listing *url.URL, e davxml.Entry) (*Item, error) {
	u, err := resolve(listing, e.Href)
	if err != nil {
		return nil, err
	}

	if !sameOrigin(c.base, u) {
		return nil, fmt.Errorf("%w: %s", ErrCrossOriginLocation, u.Redacted())
	}

	kind := KindFile
	if e.Collection {
		kind = KindDirectory
	}

	return &Item{
		URL:    u,
		Kind:   kind,
		Props:  Props{entry: e},
		client: c,
	}, nil
}

// Name returns the final path segment.
func (it *Item) Name() string {
	return path.Base(trimSlash(it.URL.Path))
}

// IsDir reports whether the item is a collection.
func (it *Item) IsDir() bool {
	return it.Kind == KindDirectory
}

// Size is the content length of a file. Collections, and files whose
// length is missing or unparseable, report false.
func (it *Item) Size() (int64, bool) {
	if it.Kind != KindFile {
		return 0, false
	}

	return it.Props.ContentLength()
}

// Content returns the body of the item. The first call issues a GET;
// later calls return the cached bytes.
func (it *Item) Content(ctx context.Context) ([]byte, error) {
	if it.loaded {
		return it.content, nil
	}

	b, err := it.client.Get(ctx, it.URL.String())
	if err != nil {
		return nil, err
	}

	it.content = b
	it.loaded = true

	return b, nil
}

// SetContent stores b at the item's location and replaces the cached
// content once the server accepts it.
func (it *Item) SetContent(ctx context.Context, b []byte) error {
	if _, err := it.client.PutBytes(ctx, it.URL.String(), b); err != nil {
		return err
	}

	it.content = append([]byte(nil), b...)
	it.loaded = true

	return nil
}

// Propfind queries the item's properties.
func (it *Item) Propfind(ctx context.Context, optFns ...PropfindOption) (*davxml.Multistatus, error) {
	return it.client.Propfind(ctx, it.URL.String(), optFns...)
}

// Proppatch updates the item's properties.
func (it *Item) Proppatch(ctx context.Context, snippet string) (*Response, error) {
	return it.client.Proppatch(ctx, it.URL.String(), snippet)
}

// String renders the item for debugging.
func (it *Item) String() string {
	return fmt.Sprintf("Item{URL: %s, type: %s}", it.URL.Redacted(), it.Kind)
}

// Props exposes the listed properties. A property that was absent or
// could not be parsed reports false.
type Props struct {
	entry davxml.Entry
}

// DisplayName returns the displayname property.
func (p Props) DisplayName() (string, bool) {
	return p.entry.DisplayName, p.entry.DisplayName != ""
}

// ContentType returns the getcontenttype property.
func (p Props) ContentType() (string, bool) {
	return p.entry.ContentType, p.entry.ContentType != ""
}

// ContentLength returns getcontentlength as a byte count.
func (p Props) ContentLength() (int64, bool) {
	return p.entry.Size()
}

// CreationDate returns the parsed creationdate property.
func (p Props) CreationDate() (time.Time, bool) {
	return p.entry.Created()
}

// LastModified returns the parsed getlastmodified property.
func (p Props) LastModified() (time.Time, bool) {
	return p.entry.Modified()
}

// ETag returns the getetag property, quotes included.
func (p Props) ETag() (string, bool) {
	return p.entry.ETag, p.entry.ETag != ""
}
