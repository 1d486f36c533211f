// Package config provides configuration structures and utilities for pageloader.
// It defines the options for fetching pages, downloading resources, report
// output and load history, plus the optional per-site YAML config file.
package config
