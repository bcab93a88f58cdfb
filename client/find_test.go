package client_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/adamwoolhether/netdav/client"
	"github.com/adamwoolhether/netdav/internal/davtest"
	"github.com/google/go-cmp/cmp"
)

// treeServer serves canned listings:
//
//	/a.html (10 bytes)
//	/b/
//	/b/c.html (5 bytes)
func treeServer(t *testing.T, rec *recorder, overrides map[string]func(http.ResponseWriter)) *httptest.Server {
	t.Helper()

	listings := map[string]string{
		"/": multistatus(
			entry{href: "/", dir: true},
			entry{href: "/a.html", size: 10},
			entry{href: "/b/", dir: true},
		),
		"/b/": multistatus(
			entry{href: "/b/", dir: true},
			entry{href: "/b/c.html", size: 5},
		),
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)

		if r.Method != "PROPFIND" || r.Header.Get("Depth") != "1" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		if fn, ok := overrides[r.URL.Path]; ok {
			fn(w)
			return
		}

		body, ok := listings[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)

	return ts
}

func collect(t *testing.T, c *client.Client, path string, optFns ...client.FindOption) ([]string, error) {
	t.Helper()

	var paths []string
	for it, err := range c.Find(t.Context(), path, optFns...) {
		if err != nil {
			return paths, err
		}
		paths = append(paths, it.URL.Path)
	}

	return paths, nil
}

func TestFind_Ordering(t *testing.T) {
	testCases := []struct {
		name string
		opts []client.FindOption
		exp  []string
	}{
		{
			name: "recursive",
			opts: []client.FindOption{client.WithRecursive()},
			exp:  []string{"/a.html", "/b/", "/b/c.html"},
		},
		{
			name: "flat",
			exp:  []string{"/a.html", "/b/"},
		},
		{
			name: "filename filter",
			opts: []client.FindOption{client.WithRecursive(), client.WithFilename("c.html")},
			exp:  []string{"/b/c.html"},
		},
		{
			name: "pattern filter",
			opts: []client.FindOption{client.WithRecursive(), client.WithFilenamePattern(regexp.MustCompile(`^a\.`))},
			exp:  []string{"/a.html"},
		},
		{
			name: "flat filter never descends",
			opts: []client.FindOption{client.WithFilename("c.html")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var rec recorder
			ts := treeServer(t, &rec, nil)
			c := build(t, ts.URL)

			got, err := collect(t, c, "/", tc.opts...)
			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}

			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("find mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFind_ItemKindAndSize(t *testing.T) {
	var rec recorder
	ts := treeServer(t, &rec, nil)
	c := build(t, ts.URL)

	type view struct {
		Path    string
		Kind    client.Kind
		Size    int64
		HasSize bool
	}

	var got []view
	for it, err := range c.Find(t.Context(), "/", client.WithRecursive()) {
		if err != nil {
			t.Fatal(err)
		}
		size, ok := it.Size()
		got = append(got, view{Path: it.URL.Path, Kind: it.Kind, Size: size, HasSize: ok})
	}

	exp := []view{
		{Path: "/a.html", Kind: client.KindFile, Size: 10, HasSize: true},
		{Path: "/b/", Kind: client.KindDirectory},
		{Path: "/b/c.html", Kind: client.KindFile, Size: 5, HasSize: true},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_Lazy(t *testing.T) {
	var rec recorder
	ts := treeServer(t, &rec, nil)
	c := build(t, ts.URL)

	for it, err := range c.Find(t.Context(), "/", client.WithRecursive()) {
		if err != nil {
			t.Fatal(err)
		}
		if it.URL.Path == "/b/" {
			break
		}
	}

	if diff := cmp.Diff([]string{"PROPFIND /"}, rec.list()); diff != "" {
		t.Errorf("exp /b/ never listed (-want +got):\n%s", diff)
	}
}

func TestFind_Restartable(t *testing.T) {
	var rec recorder
	ts := treeServer(t, &rec, nil)
	c := build(t, ts.URL)

	seq := c.Find(t.Context(), "/", client.WithRecursive())
	for range 2 {
		var n int
		for _, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			n++
		}
		if n != 3 {
			t.Errorf("exp 3 items, got %d", n)
		}
	}

	if n := rec.count("PROPFIND /"); n != 2 {
		t.Errorf("exp the root listed once per run, got %d", n)
	}
}

func TestFind_Errors(t *testing.T) {
	failing := map[string]func(http.ResponseWriter){
		"/b/": func(w http.ResponseWriter) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	}

	t.Run("propagated", func(t *testing.T) {
		var rec recorder
		ts := treeServer(t, &rec, failing)
		c := build(t, ts.URL)

		got, err := collect(t, c, "/", client.WithRecursive())
		if !errors.Is(err, client.ErrUnexpectedStatusCode) {
			t.Fatalf("exp server error, got: %v", err)
		}
		if !strings.Contains(err.Error(), "/b/") {
			t.Errorf("exp error annotated with path, got: %v", err)
		}
		if diff := cmp.Diff([]string{"/a.html", "/b/"}, got); diff != "" {
			t.Errorf("items before failure (-want +got):\n%s", diff)
		}
	})

	t.Run("suppressed", func(t *testing.T) {
		var rec recorder
		ts := treeServer(t, &rec, failing)

		var buf bytes.Buffer
		c := build(t, ts.URL, client.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		got, err := collect(t, c, "/", client.WithRecursive(), client.WithSuppressErrors())
		if err != nil {
			t.Fatalf("exp nil err, got: %v", err)
		}
		if diff := cmp.Diff([]string{"/a.html", "/b/"}, got); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(buf.String(), "skipping unreadable collection") {
			t.Errorf("exp a warning to be logged, got:\n%s", buf.String())
		}
	})

	t.Run("suppressed root", func(t *testing.T) {
		var rec recorder
		ts := treeServer(t, &rec, nil)
		c := build(t, ts.URL)

		got, err := collect(t, c, "/missing/", client.WithSuppressErrors())
		if err != nil || len(got) != 0 {
			t.Fatalf("exp empty walk, got %q, err %v", got, err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		var rec recorder
		ts := treeServer(t, &rec, map[string]func(http.ResponseWriter){
			"/": func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusMultiStatus)
				w.Write([]byte("<html>not a listing"))
			},
		})
		c := build(t, ts.URL)

		if _, err := collect(t, c, "/"); !errors.Is(err, client.ErrMalformedResponse) {
			t.Fatalf("exp ErrMalformedResponse, got: %v", err)
		}
	})
}

func TestFind_SkipsForeignHrefs(t *testing.T) {
	var foreign recorder
	elsewhere := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreign.add(r)
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(multistatus(entry{href: "/evil/", dir: true})))
	}))
	defer elsewhere.Close()

	var rec recorder
	ts := treeServer(t, &rec, map[string]func(http.ResponseWriter){
		"/": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusMultiStatus)
			w.Write([]byte(multistatus(
				entry{href: "/", dir: true},
				entry{href: "/a.html", size: 10},
				entry{href: elsewhere.URL + "/evil/", dir: true},
				entry{href: elsewhere.URL + "/leak.txt", size: 1},
			)))
		},
	})
	c := build(t, ts.URL)

	got, err := collect(t, c, "/", client.WithRecursive())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/a.html"}, got); diff != "" {
		t.Errorf("exp foreign hrefs skipped (-want +got):\n%s", diff)
	}
	if calls := foreign.list(); len(calls) != 0 {
		t.Errorf("exp no requests to the other origin, got %v", calls)
	}
}

func TestFind_SelfEntryWithoutSlash(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(multistatus(
			entry{href: "/docs", dir: true},
			entry{href: "/docs/read%20me.txt", size: 3},
		)))
	}))
	defer ts.Close()

	c := build(t, ts.URL)

	got, err := collect(t, c, "/docs/", client.WithRecursive())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/docs/read me.txt"}, got); diff != "" {
		t.Errorf("exp the self entry skipped (-want +got):\n%s", diff)
	}
}

func TestFind_RedirectedCollection(t *testing.T) {
	srv := davtest.New(t, davtest.WithRedirect("/old/", "/new/"))
	srv.Mkdir("/new")
	srv.WriteFile("/new/x.txt", "x")

	c := build(t, srv.URL)

	got, err := collect(t, c, "/old/", client.WithRecursive())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/new/x.txt"}, got); diff != "" {
		t.Errorf("exp the answering collection skipped (-want +got):\n%s", diff)
	}
}

func TestFind_RelativeHrefAfterRedirect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old/":
			http.Redirect(w, r, "/new/", http.StatusMovedPermanently)
		case "/new/":
			w.WriteHeader(http.StatusMultiStatus)
			w.Write([]byte(multistatus(
				entry{href: "/new/", dir: true},
				entry{href: "x.txt", size: 1},
			)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := build(t, ts.URL)

	got, err := collect(t, c, "/old/")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/new/x.txt"}, got); diff != "" {
		t.Errorf("exp href resolved below the redirect target (-want +got):\n%s", diff)
	}
}

func TestWalker(t *testing.T) {
	var rec recorder
	ts := treeServer(t, &rec, nil)
	c := build(t, ts.URL)

	w := c.Walk(t.Context(), "/", client.WithRecursive())

	var names []string
	for w.Next() {
		names = append(names, w.Item().Name())
	}
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"a.html", "b", "c.html"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if w.Next() {
		t.Error("exp exhausted walker to stay done")
	}
}

func TestWalker_OptionError(t *testing.T) {
	c := build(t, "http://dav.invalid/")

	w := c.Walk(t.Context(), "/", client.WithFilenamePattern(nil))
	if w.Next() {
		t.Fatal("exp no items")
	}
	if w.Err() == nil {
		t.Fatal("exp option error")
	}
}
