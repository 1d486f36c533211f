package model

import (
	"time"

	"github.com/google/uuid"
)

// ResourceStatus is the outcome of a single resource download.
type ResourceStatus string

const (
	// StatusDownloaded means the resource was written to disk.
	StatusDownloaded ResourceStatus = "downloaded"

	// StatusFailed means the resource could not be fetched or written.
	StatusFailed ResourceStatus = "failed"
)

// FetchTask describes one pending resource download.
type FetchTask struct {
	// Title is a human-readable label used in logs.
	Title string `json:"title"`

	// Link is the reference as it appeared in the page.
	Link string `json:"link"`

	// RemoteURL is the absolute URL to download.
	RemoteURL string `json:"remote_url"`

	// LocalPath is the destination file.
	LocalPath string `json:"local_path"`
}

// ResourceResult records what happened to one FetchTask.
type ResourceResult struct {
	// Link is the reference as it appeared in the page.
	Link string `json:"link"`

	// URL is the absolute URL that was requested.
	URL string `json:"url"`

	// LocalPath is the destination file.
	LocalPath string `json:"local_path"`

	// Status is the download outcome.
	Status ResourceStatus `json:"status"`

	// StatusCode is the HTTP status code, when a response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Bytes is the number of bytes written to LocalPath.
	Bytes int64 `json:"bytes"`

	// Error is the failure reason for failed downloads.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the download failed.
func (r ResourceResult) Failed() bool {
	return r.Status == StatusFailed
}

// LoadResult is the outcome of loading one page and its resources.
type LoadResult struct {
	// ID uniquely identifies the load.
	ID string `json:"id"`

	// URL is the page URL.
	URL string `json:"url"`

	// OutputDir is the directory the page was saved into.
	OutputDir string `json:"output_dir"`

	// DocumentPath is the saved HTML file.
	DocumentPath string `json:"document_path"`

	// ResourceDir is the directory holding downloaded resources.
	ResourceDir string `json:"resource_dir"`

	// StartedAt is when the load began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the load ended, successfully or not.
	FinishedAt time.Time `json:"finished_at"`

	// Error is the fatal error message, empty when the page was saved.
	Error string `json:"error,omitempty"`

	// Resources holds one entry per download task.
	Resources []ResourceResult `json:"resources"`
}

// NewLoadResult creates a LoadResult for pageURL with a fresh ID.
func NewLoadResult(pageURL, outputDir string) *LoadResult {
	return &LoadResult{
		ID:        uuid.NewString(),
		URL:       pageURL,
		OutputDir: outputDir,
		StartedAt: time.Now(),
		Resources: make([]ResourceResult, 0),
	}
}

// Finish stamps the end time and records err as the fatal error, if any.
func (r *LoadResult) Finish(err error) {
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns how long the load took.
func (r *LoadResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded returns the number of downloaded resources.
func (r *LoadResult) Succeeded() int {
	n := 0
	for _, res := range r.Resources {
		if !res.Failed() {
			n++
		}
	}
	return n
}

// FailedCount returns the number of failed resources.
func (r *LoadResult) FailedCount() int {
	return len(r.Resources) - r.Succeeded()
}

// HasFailures reports whether any resource failed.
func (r *LoadResult) HasFailures() bool {
	return r.FailedCount() > 0
}

// FailedResources returns the failed entries in task order.
func (r *LoadResult) FailedResources() []ResourceResult {
	failed := make([]ResourceResult, 0)
	for _, res := range r.Resources {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// TotalBytes returns the number of resource bytes written.
func (r *LoadResult) TotalBytes() int64 {
	var total int64
	for _, res := range r.Resources {
		total += res.Bytes
	}
	return total
}

// Complete reports whether the page itself was saved.
// Resource failures do not make a load incomplete.
func (r *LoadResult) Complete() bool {
	return r.Error == ""
}

// LoadSummary describes a load without its per-resource details.
type LoadSummary struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	OutputDir  string    `json:"output_dir"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Resources  int       `json:"resources"`
	Failed     int       `json:"failed"`
	TotalBytes int64     `json:"total_bytes"`
}

// Summary returns the LoadSummary of r.
func (r *LoadResult) Summary() LoadSummary {
	return LoadSummary{
		ID:         r.ID,
		URL:        r.URL,
		OutputDir:  r.OutputDir,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Error:      r.Error,
		Resources:  len(r.Resources),
		Failed:     r.FailedCount(),
		TotalBytes: r.TotalBytes(),
	}
}
