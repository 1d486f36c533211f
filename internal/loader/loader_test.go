package loader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/pageloader/internal/fetch"
	"github.com/nao1215/pageloader/internal/model"
	"github.com/nao1215/pageloader/internal/naming"
)

// TestNew tests Loader construction.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()

		l := New(&stubFetcher{})
		if l.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, l.concurrency)
		}
		if l.logger == nil {
			t.Error("expected default logger")
		}
		if l.deriver == nil {
			t.Error("expected default deriver")
		}
	})

	t.Run("ignores invalid options", func(t *testing.T) {
		t.Parallel()

		l := New(&stubFetcher{}, WithConcurrency(0), WithLogger(nil), WithDeriver(nil))
		if l.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, l.concurrency)
		}
		if l.logger == nil || l.deriver == nil {
			t.Error("expected defaults to be kept")
		}
	})
}

// TestLoadPageEndToEnd saves a page with one cross-origin and two
// same-origin references.
func TestLoadPageEndToEnd(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]http.HandlerFunc{
		"/blog/about":     text(aboutPage),
		"/css/site.css":   text("body { color: red; }"),
		"/assets/pic.png": text("PNGDATA"),
	})
	out := t.TempDir()

	l := New(s.client(t), WithLogger(discardLogger()))
	result, err := l.LoadPage(context.Background(), aboutURL, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DocumentPath != filepath.Join(out, "example-test-blog-about.html") {
		t.Errorf("unexpected document path %q", result.DocumentPath)
	}
	if result.ResourceDir != filepath.Join(out, "example-test-blog-about-resources") {
		t.Errorf("unexpected resource dir %q", result.ResourceDir)
	}
	if !result.Complete() || result.HasFailures() {
		t.Errorf("expected clean load, got %+v", result)
	}

	html, err := os.ReadFile(result.DocumentPath)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	for _, want := range []string{
		`href="example-test-blog-about-resources/css-site.css"`,
		`src="example-test-blog-about-resources/assets-pic.png"`,
		`src="https://cdn.other.test/lib.js"`,
	} {
		if !strings.Contains(string(html), want) {
			t.Errorf("expected document to contain %s\n%s", want, html)
		}
	}

	files := dirEntries(t, result.ResourceDir)
	if !slices.Equal(files, []string{"assets-pic.png", "css-site.css"}) {
		t.Errorf("unexpected resource files %v", files)
	}

	css, err := os.ReadFile(filepath.Join(result.ResourceDir, "css-site.css"))
	if err != nil {
		t.Fatalf("failed to read stylesheet: %v", err)
	}
	if string(css) != "body { color: red; }" {
		t.Errorf("unexpected stylesheet content %q", css)
	}

	if got := dirEntries(t, out); !slices.Equal(got, []string{"example-test-blog-about-resources", "example-test-blog-about.html"}) {
		t.Errorf("unexpected output layout %v", got)
	}
}

// TestLoadPageResourceFailure verifies a failing resource leaves the page
// load successful.
func TestLoadPageResourceFailure(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]http.HandlerFunc{
		"/blog/about":     text(aboutPage),
		"/css/site.css":   status(http.StatusInternalServerError),
		"/assets/pic.png": text("PNGDATA"),
	})
	out := t.TempDir()

	l := New(s.client(t), WithLogger(discardLogger()))
	result, err := l.LoadPage(context.Background(), aboutURL, out)
	if err != nil {
		t.Fatalf("expected success despite resource failure, got %v", err)
	}

	files := dirEntries(t, result.ResourceDir)
	if !slices.Equal(files, []string{"assets-pic.png"}) {
		t.Errorf("expected only assets-pic.png, got %v", files)
	}

	if result.FailedCount() != 1 || result.Succeeded() != 1 {
		t.Fatalf("expected 1 failure and 1 success, got %+v", result.Resources)
	}
	failed := result.FailedResources()[0]
	if failed.Link != "/css/site.css" {
		t.Errorf("unexpected failed link %q", failed.Link)
	}
	if failed.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", failed.StatusCode)
	}
	if failed.Error == "" {
		t.Error("expected failure reason")
	}
}

// TestLoadPageResolvesRelativeLinks verifies references are resolved
// against the page URL.
func TestLoadPageResolvesRelativeLinks(t *testing.T) {
	t.Parallel()

	s := newSite(t, map[string]http.HandlerFunc{
		"/blog/about":     text(`<html><body><script src="js/app.js"></script><img src="../img/a.png"></body></html>`),
		"/blog/js/app.js": text("app"),
		"/img/a.png":      text("a"),
	})
	out := t.TempDir()

	l := New(s.client(t), WithLogger(discardLogger()))
	result, err := l.LoadPage(context.Background(), aboutURL, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasFailures() {
		t.Fatalf("unexpected failures %+v", result.FailedResources())
	}

	want := []string{"/blog/about", "/blog/js/app.js", "/img/a.png"}
	if got := s.requested(); !slices.Equal(got, want) {
		t.Errorf("expected requests %v, got %v", want, got)
	}

	files := dirEntries(t, result.ResourceDir)
	if !slices.Equal(files, []string{"img-a.png", "js-app.js"}) {
		t.Errorf("unexpected resource files %v", files)
	}
}

// TestLoadPageFatalErrors tests failures that stop a load.
func TestLoadPageFatalErrors(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid urls", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{}
		l := New(fetcher, WithLogger(discardLogger()))

		for _, raw := range []string{"", "example.test/page", "ftp://example.test/x", "/relative", "http://"} {
			result, err := l.LoadPage(context.Background(), raw, t.TempDir())
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL for %q, got %v", raw, err)
			}
			if result == nil || result.Complete() {
				t.Errorf("expected failed result for %q", raw)
			}
		}
		if fetcher.calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", fetcher.calls.Load())
		}
	})

	t.Run("page fetch failure writes nothing", func(t *testing.T) {
		t.Parallel()

		s := newSite(t, nil)
		out := t.TempDir()

		l := New(s.client(t), WithLogger(discardLogger()))
		result, err := l.LoadPage(context.Background(), aboutURL, out)
		if !errors.Is(err, fetch.ErrUnexpectedStatus) {
			t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
		}
		if result.Error == "" {
			t.Error("expected error recorded in result")
		}
		if result.FinishedAt.IsZero() {
			t.Error("expected finish time")
		}
		if got := dirEntries(t, out); len(got) != 0 {
			t.Errorf("expected empty output, got %v", got)
		}
	})

	t.Run("missing output directory fails the html write", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{aboutURL: aboutPage}}
		out := filepath.Join(t.TempDir(), "missing")

		l := New(fetcher, WithLogger(discardLogger()))
		if _, err := l.LoadPage(context.Background(), aboutURL, out); err == nil {
			t.Fatal("expected error")
		}
		if fetcher.calls.Load() != 1 {
			t.Errorf("expected only the page request, got %d", fetcher.calls.Load())
		}
	})

	t.Run("directory failure is fatal but keeps the html", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{aboutURL: aboutPage}}
		out := t.TempDir()
		blocker := filepath.Join(out, "example-test-blog-about-resources")
		if err := os.WriteFile(blocker, []byte("not a directory"), 0600); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}

		l := New(fetcher, WithLogger(discardLogger()))
		result, err := l.LoadPage(context.Background(), aboutURL, out)
		if err == nil {
			t.Fatal("expected error")
		}
		if _, statErr := os.Stat(result.DocumentPath); statErr != nil {
			t.Errorf("expected html to remain, got %v", statErr)
		}
		if len(result.Resources) != 0 {
			t.Errorf("expected no resources, got %v", result.Resources)
		}
	})
}

// TestLoadPageQueryHash verifies the deriver is shared by rewrite and download.
func TestLoadPageQueryHash(t *testing.T) {
	t.Parallel()

	page := `<html><head><link href="/style.css?v=1"><link href="/style.css?v=2"></head></html>`
	fetcher := &stubFetcher{bodies: map[string]string{
		aboutURL:                            page,
		"http://example.test/style.css?v=1": "one",
		"http://example.test/style.css?v=2": "two",
	}}
	out := t.TempDir()

	d := naming.NewDeriver(naming.WithQueryHash(true))
	l := New(fetcher, WithLogger(discardLogger()), WithDeriver(d))
	result, err := l.LoadPage(context.Background(), aboutURL, out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Resources) != 2 || result.HasFailures() {
		t.Fatalf("expected two downloads, got %+v", result.Resources)
	}

	html, err := os.ReadFile(result.DocumentPath)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	for _, res := range result.Resources {
		want := filepath.Base(res.LocalPath)
		if !strings.Contains(string(html), want) {
			t.Errorf("expected document to reference %s", want)
		}
	}
}

// TestLoadPageResultStatus ensures successful resources are marked downloaded.
func TestLoadPageResultStatus(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{bodies: map[string]string{
		aboutURL:                           aboutPage,
		"http://example.test/css/site.css": "css",
	}}

	l := New(fetcher, WithLogger(discardLogger()))
	result, err := l.LoadPage(context.Background(), aboutURL, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, res := range result.Resources {
		switch res.Link {
		case "/css/site.css":
			if res.Status != model.StatusDownloaded || res.Bytes != 3 {
				t.Errorf("unexpected stylesheet result %+v", res)
			}
		case "/assets/pic.png":
			if res.Status != model.StatusFailed || res.StatusCode != http.StatusNotFound {
				t.Errorf("unexpected image result %+v", res)
			}
		default:
			t.Errorf("unexpected resource %q", res.Link)
		}
	}
}
