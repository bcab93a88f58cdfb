package client

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type authState int

const (
	authNone authState = iota
	authBasic
	authDigest
)

func (s authState) String() string {
	switch s {
	case authBasic:
		return "basic"
	case authDigest:
		return "digest"
	default:
		return "none"
	}
}

// digestChallenge holds the server-issued digest parameters.
type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	algorithm string
	qop       string
}

// authNegotiator tracks the scheme the server accepted and computes
// the Authorization header for each request. Once a scheme is accepted
// it is kept for the lifetime of the client.
type authNegotiator struct {
	user         string
	password     string
	hasCreds     bool
	disableBasic bool
	logger       *slog.Logger

	state  authState
	digest digestChallenge
	nc     uint32
	cnonce string
}

func newAuthNegotiator(user, password string, hasCreds, disableBasic bool, logger *slog.Logger) *authNegotiator {
	return &authNegotiator{
		user:         user,
		password:     password,
		hasCreds:     hasCreds,
		disableBasic: disableBasic,
		logger:       logger,
		cnonce:       strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// credentialsFor returns the Authorization value for the request, or
// false if no scheme has been accepted yet. Each digest header
// consumes one nonce count.
func (a *authNegotiator) credentialsFor(method, uri string) (string, bool) {
	switch a.state {
	case authBasic:
		token := base64.StdEncoding.EncodeToString([]byte(a.user + ":" + a.password))
		return "Basic " + token, true
	case authDigest:
		a.nc++
		return a.digestHeader(method, uri, a.nc), true
	default:
		return "", false
	}
}

// absorb switches to the scheme named by the WWW-Authenticate values.
func (a *authNegotiator) absorb(challenges []string) error {
	var basic bool
	var digest *digestChallenge
	for _, c := range challenges {
		scheme, params, _ := strings.Cut(strings.TrimSpace(c), " ")
		switch strings.ToLower(scheme) {
		case "basic":
			basic = true
		case "digest":
			if digest == nil {
				d := parseDigestChallenge(params)
				digest = &d
			}
		}
	}

	prev := a.state
	switch {
	case basic && !a.disableBasic:
		a.state = authBasic
	case digest != nil:
		a.state = authDigest
		a.digest = *digest
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAuthScheme, strings.Join(challenges, ", "))
	}

	if prev != a.state {
		a.logger.Info("authentication scheme accepted", "scheme", a.state.String(), "previous", prev.String())
	}

	return nil
}

func (a *authNegotiator) digestHeader(method, uri string, nc uint32) string {
	d := a.digest
	ha1 := md5Hex(a.user + ":" + d.realm + ":" + a.password)
	ha2 := md5Hex(method + ":" + uri)
	ncHex := fmt.Sprintf("%08x", nc)

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s"`, a.user, d.realm, d.nonce, uri)

	if d.qop != "" {
		response := md5Hex(strings.Join([]string{ha1, d.nonce, ncHex, a.cnonce, d.qop, ha2}, ":"))
		fmt.Fprintf(&b, `, cnonce="%s", nc=%s, qop=%s, response="%s"`, a.cnonce, ncHex, d.qop, response)
	} else {
		response := md5Hex(ha1 + ":" + d.nonce + ":" + ha2)
		fmt.Fprintf(&b, `, response="%s"`, response)
	}

	if d.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, d.opaque)
	}
	b.WriteString(", algorithm=MD5")

	return b.String()
}

// parseDigestChallenge reads the comma separated key=value list of a
// Digest challenge. Quoted values may contain commas.
func parseDigestChallenge(params string) digestChallenge {
	var d digestChallenge
	for key, val := range digestParams(params) {
		switch key {
		case "realm":
			d.realm = val
		case "nonce":
			d.nonce = val
		case "opaque":
			d.opaque = val
		case "algorithm":
			d.algorithm = val
		case "qop":
			for _, q := range strings.Split(val, ",") {
				if strings.TrimSpace(q) == "auth" {
					d.qop = "auth"
				}
			}
		}
	}

	return d
}

func digestParams(s string) map[string]string {
	out := make(map[string]string)
	for len(s) > 0 {
		s = strings.TrimLeft(s, " ,\t")
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			break
		}
		key = strings.ToLower(strings.TrimSpace(key))

		var val string
		if strings.HasPrefix(rest, `"`) {
			end := strings.Index(rest[1:], `"`)
			if end < 0 {
				val, s = rest[1:], ""
			} else {
				val, s = rest[1:end+1], rest[end+2:]
			}
		} else {
			val, s, _ = strings.Cut(rest, ",")
			val = strings.TrimSpace(val)
		}
		out[key] = val
	}

	return out
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
