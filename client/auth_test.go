package client

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testNegotiator(disableBasic bool) *authNegotiator {
	return newAuthNegotiator("Mufasa", "Circle Of Life", true, disableBasic, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDigestHeader_KnownResponse(t *testing.T) {
	a := testNegotiator(false)
	a.cnonce = "0a4f113b"

	err := a.absorb([]string{`Digest realm="testrealm@host.com", qop="auth,auth-int", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", opaque="5ccc069c403ebaf9f0171e9517f40e41"`})
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}

	got, ok := a.credentialsFor("GET", "/dir/index.html")
	if !ok {
		t.Fatal("exp credentials after digest challenge")
	}

	params := digestParams(strings.TrimPrefix(got, "Digest "))
	exp := map[string]string{
		"username":  "Mufasa",
		"realm":     "testrealm@host.com",
		"nonce":     "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		"uri":       "/dir/index.html",
		"cnonce":    "0a4f113b",
		"nc":        "00000001",
		"qop":       "auth",
		"response":  "6629fae49393a05397450978507c4ef1",
		"opaque":    "5ccc069c403ebaf9f0171e9517f40e41",
		"algorithm": "MD5",
	}
	if diff := cmp.Diff(exp, params); diff != "" {
		t.Errorf("digest header mismatch (-want +got):\n%s", diff)
	}
}

func TestDigestHeader_NonceCountIncreases(t *testing.T) {
	a := testNegotiator(false)
	if err := a.absorb([]string{`Digest realm="r", nonce="n", qop="auth"`}); err != nil {
		t.Fatalf("absorb: %v", err)
	}

	var ncs, cnonces []string
	for range 3 {
		h, _ := a.credentialsFor("PROPFIND", "/")
		p := digestParams(strings.TrimPrefix(h, "Digest "))
		ncs = append(ncs, p["nc"])
		cnonces = append(cnonces, p["cnonce"])
	}

	if diff := cmp.Diff([]string{"00000001", "00000002", "00000003"}, ncs); diff != "" {
		t.Errorf("nonce counts (-want +got):\n%s", diff)
	}
	if cnonces[0] == "" || cnonces[0] != cnonces[1] || cnonces[1] != cnonces[2] {
		t.Errorf("exp one client nonce, got %q", cnonces)
	}
}

func TestDigestHeader_NoQOP(t *testing.T) {
	a := testNegotiator(false)
	if err := a.absorb([]string{`Digest realm="testrealm@host.com", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093"`}); err != nil {
		t.Fatalf("absorb: %v", err)
	}

	h, _ := a.credentialsFor("GET", "/dir/index.html")
	p := digestParams(strings.TrimPrefix(h, "Digest "))

	ha1 := md5Hex("Mufasa:testrealm@host.com:Circle Of Life")
	ha2 := md5Hex("GET:/dir/index.html")
	if exp := md5Hex(ha1 + ":dcd98b7102dd2f0e8b11d0f600bfb0c093:" + ha2); p["response"] != exp {
		t.Errorf("exp response %s, got %s", exp, p["response"])
	}
	for _, key := range []string{"nc", "cnonce", "qop", "opaque"} {
		if _, ok := p[key]; ok {
			t.Errorf("exp no %s without qop, got %q", key, h)
		}
	}
}

func TestAbsorb_SchemeSelection(t *testing.T) {
	testCases := []struct {
		name         string
		challenges   []string
		disableBasic bool
		exp          authState
		expErr       error
	}{
		{name: "basic", challenges: []string{`Basic realm="x"`}, exp: authBasic},
		{name: "digest", challenges: []string{`Digest realm="x", nonce="n"`}, exp: authDigest},
		{name: "both prefers basic", challenges: []string{`Digest realm="x", nonce="n"`, `Basic realm="x"`}, exp: authBasic},
		{name: "both with basic disabled", challenges: []string{`Basic realm="x"`, `Digest realm="x", nonce="n"`}, disableBasic: true, exp: authDigest},
		{name: "only basic but disabled", challenges: []string{`Basic realm="x"`}, disableBasic: true, expErr: ErrUnsupportedAuthScheme},
		{name: "unknown", challenges: []string{`Bearer realm="x"`}, expErr: ErrUnsupportedAuthScheme},
		{name: "none", expErr: ErrUnsupportedAuthScheme},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := testNegotiator(tc.disableBasic)
			err := a.absorb(tc.challenges)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp err %v, got: %v", tc.expErr, err)
				}
				if a.state != authNone {
					t.Errorf("exp state unchanged, got %s", a.state)
				}
				return
			}

			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if a.state != tc.exp {
				t.Errorf("exp %s, got %s", tc.exp, a.state)
			}
		})
	}
}

func TestCredentialsFor_Basic(t *testing.T) {
	a := testNegotiator(false)
	if _, ok := a.credentialsFor("GET", "/"); ok {
		t.Fatal("exp no credentials before a challenge")
	}

	if err := a.absorb([]string{`Basic realm="x"`}); err != nil {
		t.Fatal(err)
	}

	got, _ := a.credentialsFor("GET", "/")
	if exp := "Basic TXVmYXNhOkNpcmNsZSBPZiBMaWZl"; got != exp {
		t.Errorf("exp %q, got %q", exp, got)
	}
}

func TestDigestParams_QuotedCommas(t *testing.T) {
	got := digestParams(`realm="a, b", nonce=abc, qop="auth,auth-int"`)
	exp := map[string]string{"realm": "a, b", "nonce": "abc", "qop": "auth,auth-int"}

	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}
}
