package download

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"net/http"
	"strings"
)

// checksumVerifier hashes the resource as it is written to disk and
// compares the result with one expected digest.
type checksumVerifier struct {
	hash     hash.Hash
	expected []byte
	source   string
	display  string
}

// newHexVerifier expects a hex digest. A value that is not hex can never
// match and is reported as a mismatch.
func newHexVerifier(h hash.Hash, expected, source string) *checksumVerifier {
	b, err := hex.DecodeString(strings.TrimSpace(expected))
	if err != nil {
		b = nil
	}

	return &checksumVerifier{hash: h, expected: b, source: source, display: expected}
}

func newBase64Verifier(h hash.Hash, expected, source string) *checksumVerifier {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(expected))
	if err != nil {
		b = nil
	}

	return &checksumVerifier{hash: h, expected: b, source: source, display: expected}
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := v.hash.Sum(nil)
	if len(v.expected) == 0 || !bytes.Equal(actual, v.expected) {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("%s: expected %s, got %s", v.source, v.display, hex.EncodeToString(actual)),
		}
	}

	return nil
}

// newHash maps a digest algorithm token to a hash, case insensitively.
func newHash(alg string) (hash.Hash, bool) {
	switch strings.ToLower(strings.TrimSpace(alg)) {
	case "md5":
		return md5.New(), true
	case "sha", "sha1", "sha-1":
		return sha1.New(), true
	case "sha-256", "sha256":
		return sha256.New(), true
	case "sha-512", "sha512":
		return sha512.New(), true
	}

	return nil, false
}

// serverVerifiers reads the digests announced in a GET response.
//
//	Digest: SHA-256=X48E9q...=, MD5=HUXZ...==          (RFC 3230)
//	Content-Digest: sha-256=:X48E9q...=:              (RFC 9530)
//	Content-MD5: HUXZLQLMuI/KZ5KDcJPcOA==
//	OC-Checksum: SHA1:a94a8fe5cc... MD5:098f6bcd...
func serverVerifiers(header http.Header) []*checksumVerifier {
	var out []*checksumVerifier

	for _, name := range []string{"Digest", "Content-Digest", "Repr-Digest"} {
		for _, value := range header.Values(name) {
			for _, member := range strings.Split(value, ",") {
				alg, digest, ok := strings.Cut(strings.TrimSpace(member), "=")
				if !ok {
					continue
				}
				h, ok := newHash(alg)
				if !ok {
					continue
				}
				out = append(out, newBase64Verifier(h, strings.Trim(digest, ":"), name+" "+strings.ToLower(alg)))
			}
		}
	}

	if value := header.Get("Content-MD5"); value != "" {
		out = append(out, newBase64Verifier(md5.New(), value, "Content-MD5"))
	}

	for _, value := range header.Values("OC-Checksum") {
		for _, field := range strings.Fields(value) {
			alg, digest, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			h, ok := newHash(alg)
			if !ok {
				continue
			}
			out = append(out, newHexVerifier(h, digest, "OC-Checksum "+strings.ToLower(alg)))
		}
	}

	return out
}
