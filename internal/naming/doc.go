// Package naming derives deterministic, filesystem-safe local names from URLs.
//
// Three kinds of names exist:
//
//   - Document: the file the rewritten page is saved as (always HTML)
//   - Resource: a downloaded asset; the original extension is preserved
//   - Directory: the per-page folder that holds the assets
//
// Names are built from the URL's host and path only. The scheme, query and
// fragment never take part, so two URLs that differ only by query string
// map to the same name unless a Deriver is created with WithQueryHash.
//
// # Usage
//
//	naming.Derive("http://example.test/blog/about", naming.Document)
//	// example-test-blog-about.html
//	naming.Derive("/assets/pic.png", naming.Resource)
//	// assets-pic.png
//	naming.Derive("http://example.test/blog/about", naming.Directory)
//	// example-test-blog-about-resources
package naming
