// Package model defines the data structures shared by the loader, the
// report writers and the history database.
//
// This package contains the following main types:
//   - FetchTask: one pending resource download
//   - ResourceResult: the outcome of a FetchTask
//   - LoadResult: the outcome of loading one page and all of its resources
//   - LoadSummary: a LoadResult without per-resource details, used in listings
//
// The types are serializable to JSON for report output.
package model
