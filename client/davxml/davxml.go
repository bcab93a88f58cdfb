// Package davxml builds WebDAV request envelopes and parses multistatus
// listings returned by PROPFIND.
//
// Parsing is tolerant at the field level: every property is kept as the
// raw text the server sent and only converted on access, so a single
// malformed value never aborts the listing. Only a document that cannot
// be decoded at all is reported, wrapped in [ErrMalformed].
package davxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Namespace is the WebDAV XML namespace.
const Namespace = "DAV:"

// ContentType is sent with every XML request body.
const ContentType = `text/xml; charset="utf-8"`

const header = `<?xml version="1.0" encoding="utf-8"?>`

// ErrMalformed is returned when a multistatus document cannot be decoded.
var ErrMalformed = errors.New("malformed multistatus document")

// Multistatus is the root element of a PROPFIND response.
type Multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []Response `xml:"DAV: response"`

	// Raw is the document as received.
	Raw []byte `xml:"-"`
}

// Response holds one resource of a multistatus listing.
type Response struct {
	Href      string     `xml:"DAV: href"`
	Status    string     `xml:"DAV: status"`
	Propstats []Propstat `xml:"DAV: propstat"`
}

// Propstat groups properties sharing the same status.
type Propstat struct {
	Prop   Prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

// Prop holds the live properties the client understands. Values are
// raw strings; see [Entry] for typed access.
type Prop struct {
	DisplayName   string       `xml:"DAV: displayname"`
	ContentType   string       `xml:"DAV: getcontenttype"`
	ContentLength string       `xml:"DAV: getcontentlength"`
	CreationDate  string       `xml:"DAV: creationdate"`
	LastModified  string       `xml:"DAV: getlastmodified"`
	ETag          string       `xml:"DAV: getetag"`
	ResourceType  ResourceType `xml:"DAV: resourcetype"`
	InnerXML      string       `xml:",innerxml"`
}

// ResourceType marks collections.
type ResourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// Parse decodes a multistatus document.
func Parse(r io.Reader) (*Multistatus, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	return ParseBytes(raw)
}

// ParseBytes decodes a multistatus document held in memory.
func ParseBytes(raw []byte) (*Multistatus, error) {
	var ms Multistatus
	if err := xml.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	ms.Raw = raw

	return &ms, nil
}

// String returns the document as received.
func (ms *Multistatus) String() string {
	return string(ms.Raw)
}

// Entries flattens the listing into one Entry per response, in
// document order.
func (ms *Multistatus) Entries() []Entry {
	entries := make([]Entry, 0, len(ms.Responses))
	for _, resp := range ms.Responses {
		entries = append(entries, resp.Entry())
	}

	return entries
}

// Entry merges every propstat of the response. For each field the
// first non-empty value wins; the collection flag is set if any
// propstat reports it.
func (r Response) Entry() Entry {
	e := Entry{Href: strings.TrimSpace(r.Href), Status: r.Status}
	for _, ps := range r.Propstats {
		p := ps.Prop
		first(&e.DisplayName, p.DisplayName)
		first(&e.ContentType, p.ContentType)
		first(&e.ContentLength, p.ContentLength)
		first(&e.CreationDate, p.CreationDate)
		first(&e.LastModified, p.LastModified)
		first(&e.ETag, p.ETag)
		if p.ResourceType.Collection != nil {
			e.Collection = true
		}
		if e.Status == "" {
			e.Status = ps.Status
		}
	}

	return e
}

func first(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

// Entry is a single listing tuple.
type Entry struct {
	Href          string
	Status        string
	Collection    bool
	DisplayName   string
	ContentType   string
	ContentLength string
	CreationDate  string
	LastModified  string
	ETag          string
}

// Size parses the content length.
func (e Entry) Size() (int64, bool) {
	if e.ContentLength == "" {
		return 0, false
	}

	n, err := strconv.ParseInt(e.ContentLength, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// Created parses the creation date.
func (e Entry) Created() (time.Time, bool) {
	return parseTime(e.CreationDate)
}

// Modified parses the last modification date.
func (e Entry) Modified() (time.Time, bool) {
	return parseTime(e.LastModified)
}

// parseTime accepts the RFC 3339 form used by creationdate and the
// HTTP-date forms used by getlastmodified; servers mix them up.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	if t, err := http.ParseTime(s); err == nil {
		return t, true
	}

	return time.Time{}, false
}

// /////////////////////////////////////////////////////////////////

// PropfindAllProp requests every live property.
func PropfindAllProp() []byte {
	return []byte(header + `<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`)
}

// PropfindACL requests the access control properties of a resource.
func PropfindACL() []byte {
	return []byte(header + `<D:propfind xmlns:D="DAV:"><D:prop>` +
		`<D:owner/><D:supported-privilege-set/><D:current-user-privilege-set/><D:acl/>` +
		`</D:prop></D:propfind>`)
}

// Proppatch wraps the given property snippet in a set instruction.
// The snippet may use the "D:" prefix for the DAV: namespace.
func Proppatch(snippet string) []byte {
	return []byte(header + `<D:propertyupdate xmlns:D="DAV:"><D:set><D:prop>` +
		snippet +
		`</D:prop></D:set></D:propertyupdate>`)
}

// LockScope is the scope of a requested lock.
type LockScope string

// Lock scopes.
const (
	Exclusive LockScope = "exclusive"
	Shared    LockScope = "shared"
)

// LockInfo describes a LOCK request body.
type LockInfo struct {
	Scope LockScope
	// Owner is free text, usually a contact href.
	Owner string
}

// Marshal renders the lockinfo document. An empty scope means exclusive.
func (li LockInfo) Marshal() []byte {
	scope := li.Scope
	if scope == "" {
		scope = Exclusive
	}

	var b bytes.Buffer
	b.WriteString(header)
	b.WriteString(`<D:lockinfo xmlns:D="DAV:">`)
	fmt.Fprintf(&b, `<D:lockscope><D:%s/></D:lockscope>`, scope)
	b.WriteString(`<D:locktype><D:write/></D:locktype>`)
	if li.Owner != "" {
		b.WriteString(`<D:owner><D:href>`)
		_ = xml.EscapeText(&b, []byte(li.Owner))
		b.WriteString(`</D:href></D:owner>`)
	}
	b.WriteString(`</D:lockinfo>`)

	return b.Bytes()
}
