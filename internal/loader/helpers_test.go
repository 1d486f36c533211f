package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pageloader/internal/fetch"
)

const aboutURL = "http://example.test/blog/about"

const aboutPage = `<!DOCTYPE html>
<html>
<head>
	<title>About</title>
	<link rel="stylesheet" href="/css/site.css">
	<script src="https://cdn.other.test/lib.js"></script>
</head>
<body>
	<img src="/assets/pic.png">
</body>
</html>`

// discardLogger returns a logger that writes nowhere.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// site is an httptest server reachable as http://example.test.
type site struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []string
}

// newSite serves routes as example.test. Unknown paths return 404.
func newSite(t *testing.T, routes map[string]http.HandlerFunc) *site {
	t.Helper()

	s := &site{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		s.mu.Unlock()

		if h, ok := routes[r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

// client returns a fetch.Client that sends example.test requests to the
// test server and refuses every other host.
func (s *site) client(t *testing.T) *fetch.Client {
	t.Helper()

	target, err := url.Parse(s.srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}

	base := s.srv.Client().Transport
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Host != "example.test" {
			return nil, errors.New("unexpected host " + req.URL.Host)
		}
		clone := req.Clone(req.Context())
		clone.URL.Scheme = target.Scheme
		clone.URL.Host = target.Host
		return base.RoundTrip(clone)
	})

	c, err := fetch.NewClient(fetch.WithTransport(rt), fetch.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// requested returns the paths the server has seen, sorted.
func (s *site) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := slices.Clone(s.requests)
	slices.Sort(paths)
	return paths
}

// text serves a fixed body.
func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

// status serves an error status.
func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

// dirEntries returns the sorted file names in dir.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// stubFetcher is an in-memory Fetcher.
type stubFetcher struct {
	bodies map[string]string
	errs   map[string]error
	broken map[string]bool
	delay  time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (f *stubFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.Stream(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (f *stubFetcher) Stream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		current := f.maxInFlight.Load()
		if n <= current || f.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if f.broken[rawURL] {
		return io.NopCloser(io.MultiReader(strings.NewReader("partial"), errReader{})), nil
	}
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, &fetch.StatusError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// errReader fails every read.
type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
