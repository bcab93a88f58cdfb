package davtest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scheme selects which challenges the server issues.
type Scheme int

const (
	SchemeBasic Scheme = 1 << iota
	SchemeDigest
)

// DigestUse is one accepted digest Authorization header.
type DigestUse struct {
	NC     uint32
	CNonce string
}

// authenticator checks credentials and records digest usage.
type authenticator struct {
	user     string
	password string
	scheme   Scheme
	realm    string
	nonce    string
	opaque   string
	noQOP    bool

	mu   sync.Mutex
	uses []DigestUse
}

func newAuthenticator(user, password string, scheme Scheme, noQOP bool) *authenticator {
	return &authenticator{
		user:     user,
		password: password,
		scheme:   scheme,
		realm:    "netdav",
		nonce:    strings.ReplaceAll(uuid.NewString(), "-", ""),
		opaque:   strings.ReplaceAll(uuid.NewString(), "-", ""),
		noQOP:    noQOP,
	}
}

// Auth rejects requests without valid credentials with a 401 carrying
// the configured challenges.
func (a *authenticator) Auth() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if a.valid(r) {
				return handler(ctx, w, r)
			}

			if a.scheme&SchemeDigest != 0 {
				challenge := fmt.Sprintf(`Digest realm="%s", nonce="%s", opaque="%s", algorithm=MD5`, a.realm, a.nonce, a.opaque)
				if !a.noQOP {
					challenge += `, qop="auth"`
				}
				w.Header().Add("WWW-Authenticate", challenge)
			}
			if a.scheme&SchemeBasic != 0 {
				w.Header().Add("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, a.realm))
			}
			w.WriteHeader(http.StatusUnauthorized)

			return nil
		}
		return h
	}
	return m
}

func (a *authenticator) valid(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	scheme, params, _ := strings.Cut(header, " ")

	switch strings.ToLower(scheme) {
	case "basic":
		if a.scheme&SchemeBasic == 0 {
			return false
		}
		user, password, ok := r.BasicAuth()
		return ok && user == a.user && password == a.password

	case "digest":
		if a.scheme&SchemeDigest == 0 {
			return false
		}
		return a.validDigest(r, parseParams(params))
	}

	return false
}

func (a *authenticator) validDigest(r *http.Request, p map[string]string) bool {
	if p["username"] != a.user || p["realm"] != a.realm || p["nonce"] != a.nonce {
		return false
	}
	if p["uri"] != r.URL.RequestURI() || p["opaque"] != a.opaque {
		return false
	}

	ha1 := md5Hex(a.user + ":" + a.realm + ":" + a.password)
	ha2 := md5Hex(r.Method + ":" + p["uri"])

	var expected string
	if a.noQOP {
		expected = md5Hex(ha1 + ":" + a.nonce + ":" + ha2)
	} else {
		if p["qop"] != "auth" {
			return false
		}
		expected = md5Hex(strings.Join([]string{ha1, a.nonce, p["nc"], p["cnonce"], p["qop"], ha2}, ":"))
	}

	if p["response"] != expected {
		return false
	}

	if !a.noQOP {
		nc, err := strconv.ParseUint(p["nc"], 16, 32)
		if err != nil {
			return false
		}

		a.mu.Lock()
		a.uses = append(a.uses, DigestUse{NC: uint32(nc), CNonce: p["cnonce"]})
		a.mu.Unlock()
	}

	return true
}

func (a *authenticator) digestUses() []DigestUse {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]DigestUse(nil), a.uses...)
}

// parseParams splits a comma separated key=value list, unquoting values.
func parseParams(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitQuoted(s) {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(val), `"`)
	}

	return out
}

func splitQuoted(s string) []string {
	var parts []string
	var quoted bool
	start := 0
	for i, c := range s {
		switch c {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
