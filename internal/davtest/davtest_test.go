package davtest_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/adamwoolhether/netdav/internal/davtest"
)

func do(t *testing.T, method, url string, header http.Header) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestServer_SeedAndCount(t *testing.T) {
	srv := davtest.New(t)
	srv.Mkdir("/docs")
	srv.WriteFile("/docs/a.txt", "alpha")

	resp := do(t, http.MethodGet, srv.URL+"/docs/a.txt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("exp 200, got %d", resp.StatusCode)
	}

	resp = do(t, "PROPFIND", srv.URL+"/docs/", http.Header{"Depth": {"1"}})
	if resp.StatusCode != http.StatusMultiStatus {
		t.Fatalf("exp 207, got %d", resp.StatusCode)
	}

	if got := srv.Requests().Count(http.MethodGet); got != 1 {
		t.Errorf("exp 1 GET, got %d", got)
	}
	if got := srv.Requests().Total(); got != 2 {
		t.Errorf("exp 2 requests, got %d", got)
	}

	if !srv.Exists("/docs/a.txt") {
		t.Error("exp seeded file to exist")
	}
	got, err := srv.ReadFile("/docs/a.txt")
	if err != nil || got != "alpha" {
		t.Errorf("exp alpha, got %q, err %v", got, err)
	}
}

func TestServer_Challenges(t *testing.T) {
	testCases := []struct {
		name    string
		scheme  davtest.Scheme
		expAuth []string
	}{
		{name: "basic", scheme: davtest.SchemeBasic, expAuth: []string{"Basic"}},
		{name: "digest", scheme: davtest.SchemeDigest, expAuth: []string{"Digest"}},
		{name: "both", scheme: davtest.SchemeBasic | davtest.SchemeDigest, expAuth: []string{"Digest", "Basic"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := davtest.New(t, davtest.WithCredentials("user", "pass", tc.scheme))

			resp := do(t, "PROPFIND", srv.URL+"/", nil)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("exp 401, got %d", resp.StatusCode)
			}

			got := resp.Header.Values("WWW-Authenticate")
			if len(got) != len(tc.expAuth) {
				t.Fatalf("exp %d challenges, got %q", len(tc.expAuth), got)
			}
			for i, prefix := range tc.expAuth {
				if !strings.HasPrefix(got[i], prefix) {
					t.Errorf("challenge %d: exp %s, got %q", i, prefix, got[i])
				}
			}
		})
	}
}

func TestServer_BasicAccepted(t *testing.T) {
	srv := davtest.New(t, davtest.WithCredentials("user", "pass", davtest.SchemeBasic))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetBasicAuth("user", "pass")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		t.Fatal("exp valid basic credentials to be accepted")
	}
}

func TestServer_RedirectAndFailure(t *testing.T) {
	srv := davtest.New(t,
		davtest.WithRedirect("/old", "/new"),
		davtest.WithRedirectCode(http.StatusMovedPermanently),
		davtest.WithFailure("/broken/", http.StatusInternalServerError),
	)

	resp := do(t, http.MethodGet, srv.URL+"/old", nil)
	if resp.StatusCode != http.StatusMovedPermanently || resp.Header.Get("Location") != "/new" {
		t.Fatalf("exp 301 to /new, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = do(t, "PROPFIND", srv.URL+"/broken/", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("exp 500, got %d", resp.StatusCode)
	}
}

func TestServer_PanicRecovered(t *testing.T) {
	boom := func(davtest.Handler) davtest.Handler {
		return func(context.Context, http.ResponseWriter, *http.Request) error {
			panic(errors.New("boom"))
		}
	}
	srv := davtest.New(t, davtest.WithMiddleware(boom))

	resp := do(t, http.MethodGet, srv.URL+"/", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("exp 500 after panic, got %d", resp.StatusCode)
	}
}

func TestGetValues_NoValues(t *testing.T) {
	v := davtest.GetValues(context.Background())
	if v.RequestID == "" || v.Now.IsZero() {
		t.Fatalf("exp defaulted values, got %+v", v)
	}
}
