package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/pageloader/internal/fetch"
	"github.com/nao1215/pageloader/internal/markup"
	"github.com/nao1215/pageloader/internal/model"
	"github.com/nao1215/pageloader/internal/naming"
	"golang.org/x/sync/errgroup"
)

// LoadResources downloads the same-origin resources referenced by page into
// outputDir/<directory name of pageURL>.
//
// page must be the original, unrewritten body. Each reference is resolved
// against pageURL. References that map to the same local file are fetched
// once. Downloads run concurrently and independently: a failure is logged
// and recorded in its ResourceResult while the others continue.
//
// The returned results are in task order. The error is non-nil only when the
// resource directory cannot be created, in which case nothing is downloaded.
func (l *Loader) LoadResources(ctx context.Context, pageURL, outputDir string, page []byte) ([]model.ResourceResult, error) {
	base, err := parsePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	links, err := markup.ExtractLinksFromBytes(page)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(outputDir, l.deriver.Derive(pageURL, naming.Directory))
	if err := makeResourceDir(dir); err != nil {
		return nil, err
	}

	tasks := l.buildTasks(base, dir, links)
	results := make([]model.ResourceResult, len(tasks))

	l.logger.Debug("downloading resources",
		"url", pageURL,
		"links", len(links),
		"tasks", len(tasks),
		"concurrency", l.concurrency,
	)

	// Plain Group: a failing download must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(l.concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = l.download(ctx, task)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // tasks never return errors

	return results, nil
}

// makeResourceDir creates dir. An existing directory is reused so that a
// page can be loaded again into the same place.
func makeResourceDir(dir string) error {
	err := os.Mkdir(dir, 0750)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
	}
	return fmt.Errorf("failed to create resource directory %s: %w", dir, err)
}

// buildTasks turns links into download tasks, dropping those whose local
// path was already claimed by an earlier link.
func (l *Loader) buildTasks(base *url.URL, dir string, links []string) []model.FetchTask {
	tasks := make([]model.FetchTask, 0, len(links))
	seen := make(map[string]struct{}, len(links))

	for _, link := range links {
		ref, err := url.Parse(strings.TrimSpace(link))
		if err != nil {
			continue
		}

		localPath := filepath.Join(dir, l.deriver.Derive(link, naming.Resource))
		if _, ok := seen[localPath]; ok {
			l.logger.Debug("skipping duplicate resource", "link", link, "path", localPath)
			continue
		}
		seen[localPath] = struct{}{}

		remote := base.ResolveReference(ref)
		remote.Fragment = ""

		tasks = append(tasks, model.FetchTask{
			Title:     "Downloading " + remote.String(),
			Link:      link,
			RemoteURL: remote.String(),
			LocalPath: localPath,
		})
	}

	return tasks
}

// download runs one task and reports its outcome.
func (l *Loader) download(ctx context.Context, task model.FetchTask) model.ResourceResult {
	result := model.ResourceResult{
		Link:      task.Link,
		URL:       task.RemoteURL,
		LocalPath: task.LocalPath,
		Status:    model.StatusDownloaded,
	}

	l.logger.Debug(task.Title)

	n, err := l.saveTo(ctx, task.RemoteURL, task.LocalPath)
	if err != nil {
		result.Status = model.StatusFailed
		result.Error = err.Error()

		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			result.StatusCode = statusErr.StatusCode
		}

		l.logger.Warn("failed to download resource", "url", task.RemoteURL, "error", err)
		return result
	}

	result.Bytes = n
	l.logger.Debug("resource saved", "url", task.RemoteURL, "path", task.LocalPath, "bytes", n)
	return result
}

// saveTo streams rawURL into localPath. The file is created only once the
// server has answered with a success status, and removed if copying fails.
func (l *Loader) saveTo(ctx context.Context, rawURL, localPath string) (int64, error) {
	body, err := l.fetcher.Stream(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path derived from sanitized names
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(localPath) //nolint:errcheck // copy error takes precedence
		return 0, fmt.Errorf("failed to write %s: %w", localPath, err)
	}

	return n, nil
}
