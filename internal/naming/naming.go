package naming

import (
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Kind selects the flavor of name produced by Derive.
type Kind int

const (
	// Resource is the name of a downloaded asset.
	Resource Kind = iota
	// Document is the name of the saved page.
	Document
	// Directory is the name of the folder holding a page's assets.
	Directory
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Resource:
		return "resource"
	case Document:
		return "document"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

const (
	// DirectorySuffix is appended to directory names.
	DirectorySuffix = "-resources"

	// DocumentExtension is appended to document names that lack one.
	DocumentExtension = ".html"

	// fallbackName is used when nothing survives normalization.
	fallbackName = "index"

	// queryHashLength is the number of hex characters kept from the query hash.
	queryHashLength = 8
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)
	validExtension  = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
)

// Deriver computes local names. The zero value behaves like Derive.
type Deriver struct {
	queryHash bool
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithQueryHash appends a short hash of the query string to derived names
// when the URL has one, so that URLs differing only by query do not share
// a local file.
func WithQueryHash(enabled bool) Option {
	return func(d *Deriver) {
		d.queryHash = enabled
	}
}

// NewDeriver creates a Deriver with the given options.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive returns the local name for rawURL using the default scheme
// (query strings ignored).
func Derive(rawURL string, kind Kind) string {
	var d Deriver
	return d.Derive(rawURL, kind)
}

// Derive returns the local name of the given kind for rawURL.
func (d *Deriver) Derive(rawURL string, kind Kind) string {
	host, urlPath, query := split(rawURL)
	location := host + urlPath
	ext := path.Ext(urlPath)

	switch kind {
	case Directory:
		return d.stem(location, query) + DirectorySuffix
	case Document:
		lower := strings.ToLower(ext)
		if lower == ".html" || lower == ".htm" {
			return d.stem(strings.TrimSuffix(location, ext), query) + lower
		}
		return d.stem(location, query) + DocumentExtension
	default:
		if !validExtension.MatchString(ext) {
			return d.stem(location, query)
		}
		return d.stem(strings.TrimSuffix(location, ext), query) + ext
	}
}

// stem normalizes host+path into a hyphen-separated name.
func (d *Deriver) stem(location, query string) string {
	name := strings.Trim(nonAlphanumeric.ReplaceAllString(location, "-"), "-")
	if name == "" {
		name = fallbackName
	}
	if d.queryHash && query != "" {
		sum := sha3.Sum256([]byte(query))
		name += "-" + hex.EncodeToString(sum[:])[:queryHashLength]
	}
	return name
}

// split returns the host, path and raw query of rawURL.
// Strings that do not parse as URLs are cut at the first '?' or '#'
// and treated as a path.
func split(rawURL string) (string, string, string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		s := rawURL
		var query string
		if i := strings.IndexAny(s, "?#"); i >= 0 {
			if s[i] == '?' {
				query = s[i+1:]
				if j := strings.IndexByte(query, '#'); j >= 0 {
					query = query[:j]
				}
			}
			s = s[:i]
		}
		if i := strings.Index(s, "://"); i >= 0 {
			s = s[i+3:]
		}
		return "", s, query
	}
	return u.Host, u.Path, u.RawQuery
}
