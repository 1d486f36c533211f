package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nao1215/pageloader/internal/markup"
	"github.com/nao1215/pageloader/internal/model"
	"github.com/nao1215/pageloader/internal/naming"
)

// DefaultConcurrency is the number of resources downloaded at once.
const DefaultConcurrency = 8

// Fetcher retrieves remote content. fetch.Client implements it.
type Fetcher interface {
	// Get returns the whole body of rawURL.
	Get(ctx context.Context, rawURL string) ([]byte, error)

	// Stream returns the open body of rawURL. The caller closes it.
	Stream(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Loader saves pages and their resources.
// It is safe for concurrent use when its Fetcher is.
type Loader struct {
	fetcher     Fetcher
	deriver     *naming.Deriver
	concurrency int
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithConcurrency sets how many resources are downloaded at once.
// Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithDeriver sets the name deriver used for documents, directories
// and resources.
func WithDeriver(d *naming.Deriver) Option {
	return func(l *Loader) {
		if d != nil {
			l.deriver = d
		}
	}
}

// New creates a Loader that downloads through fetcher.
func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:     fetcher,
		deriver:     naming.NewDeriver(),
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadPage saves pageURL into outputDir together with its resources.
//
// The returned LoadResult is never nil. When err is non-nil the result
// carries the same message in its Error field and whatever was completed
// before the failure. Files already written are left in place.
func (l *Loader) LoadPage(ctx context.Context, pageURL, outputDir string) (*model.LoadResult, error) {
	result := model.NewLoadResult(pageURL, outputDir)

	l.logger.Info("loading page", "url", pageURL, "output", outputDir, "id", result.ID)

	err := l.loadPage(ctx, result)
	result.Finish(err)

	if err != nil {
		l.logger.Error("page load failed", "url", pageURL, "error", err)
		return result, err
	}

	l.logger.Info("page loaded",
		"url", pageURL,
		"document", result.DocumentPath,
		"resources", len(result.Resources),
		"failed", result.FailedCount(),
		"elapsed", result.Duration(),
	)
	return result, nil
}

func (l *Loader) loadPage(ctx context.Context, result *model.LoadResult) error {
	if _, err := parsePageURL(result.URL); err != nil {
		return err
	}

	docName := l.deriver.Derive(result.URL, naming.Document)
	dirName := l.deriver.Derive(result.URL, naming.Directory)
	result.DocumentPath = filepath.Join(result.OutputDir, docName)
	result.ResourceDir = filepath.Join(result.OutputDir, dirName)

	body, err := l.fetcher.Get(ctx, result.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch page %s: %w", result.URL, err)
	}
	l.logger.Debug("page fetched", "url", result.URL, "bytes", len(body))

	doc, err := markup.Parse(body)
	if err != nil {
		return err
	}

	html, err := markup.Rewrite(doc, dirName, func(link string) string {
		return l.deriver.Derive(link, naming.Resource)
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(result.DocumentPath, []byte(html), 0600); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}

	resources, err := l.LoadResources(ctx, result.URL, result.OutputDir, body)
	result.Resources = append(result.Resources, resources...)
	return err
}

// parsePageURL returns pageURL parsed, or ErrInvalidURL when it is not an
// absolute http(s) URL with a host.
func parsePageURL(pageURL string) (*url.URL, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidURL, pageURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, pageURL)
	}
	return u, nil
}
