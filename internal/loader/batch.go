package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/pageloader/internal/model"
	"golang.org/x/sync/errgroup"
)

// defaultBatchSize is the number of pages loaded at once.
const defaultBatchSize = 1

// Factory returns the Loader to use for pageURL. It lets callers apply
// per-site settings such as headers or concurrency.
type Factory func(pageURL string) (*Loader, error)

// BatchProcessor loads several pages concurrently.
// Pages map to distinct documents and directories, so they can share an
// output directory.
type BatchProcessor struct {
	factory   Factory
	batchSize int
	logger    *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchSize sets the maximum number of pages loaded at once.
// Non-positive values are ignored.
func WithBatchSize(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. factory is called once per page.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:   factory,
		batchSize: defaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch loads every URL into outputDir and returns one result per
// URL in input order. Failed pages are reported through their result; the
// returned error is only set when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string, outputDir string) ([]*model.LoadResult, error) {
	results := make([]*model.LoadResult, len(urls))

	err := bp.ProcessBatchWithCallback(ctx, urls, outputDir, func(result *model.LoadResult, index int) {
		results[index] = result
	})

	return results, err
}

// ProcessBatchWithCallback loads every URL into outputDir and calls callback
// as each page finishes. callback runs on the loading goroutine, so it must
// be safe for concurrent use when the batch size is above one.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	outputDir string,
	callback func(result *model.LoadResult, index int),
) error {
	bp.logger.Info("starting batch",
		"total_pages", len(urls),
		"batch_size", bp.batchSize,
	)

	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.batchSize)

	for i, pageURL := range urls {
		g.Go(func() error {
			callback(bp.loadOne(ctx, pageURL, outputDir), i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // pages never return errors

	bp.logger.Info("batch complete",
		"total_pages", len(urls),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}

// loadOne loads a single page, turning setup failures and cancellation into
// a failed result.
func (bp *BatchProcessor) loadOne(ctx context.Context, pageURL, outputDir string) *model.LoadResult {
	if err := ctx.Err(); err != nil {
		result := model.NewLoadResult(pageURL, outputDir)
		result.Finish(err)
		return result
	}

	l, err := bp.factory(pageURL)
	if err != nil {
		bp.logger.Warn("cannot prepare loader", "url", pageURL, "error", err)
		result := model.NewLoadResult(pageURL, outputDir)
		result.Finish(err)
		return result
	}

	result, err := l.LoadPage(ctx, pageURL, outputDir)
	if err != nil {
		bp.logger.Warn("page failed", "url", pageURL, "error", err)
	}
	return result
}
