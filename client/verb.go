package client

import (
	"fmt"
	"net/http"
	"strings"
)

// Verb is one of the request methods the client knows how to build.
type Verb int

// The WebDAV verb set.
const (
	VerbPropfind Verb = iota + 1
	VerbGet
	VerbPut
	VerbMkcol
	VerbDelete
	VerbMove
	VerbCopy
	VerbProppatch
	VerbLock
	VerbUnlock
)

var verbNames = [...]string{
	VerbPropfind:  "PROPFIND",
	VerbGet:       http.MethodGet,
	VerbPut:       http.MethodPut,
	VerbMkcol:     "MKCOL",
	VerbDelete:    http.MethodDelete,
	VerbMove:      "MOVE",
	VerbCopy:      "COPY",
	VerbProppatch: "PROPPATCH",
	VerbLock:      "LOCK",
	VerbUnlock:    "UNLOCK",
}

// Method returns the HTTP method for v.
func (v Verb) Method() (string, error) {
	if v < VerbPropfind || v > VerbUnlock {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedVerb, int(v))
	}

	return verbNames[v], nil
}

func (v Verb) String() string {
	m, err := v.Method()
	if err != nil {
		return fmt.Sprintf("Verb(%d)", int(v))
	}

	return m
}

// ParseVerb maps a method name, case-insensitively, to its Verb.
func ParseVerb(s string) (Verb, error) {
	up := strings.ToUpper(s)
	for v := VerbPropfind; v <= VerbUnlock; v++ {
		if verbNames[v] == up {
			return v, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnsupportedVerb, s)
}
