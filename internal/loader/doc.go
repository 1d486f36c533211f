// Package loader saves a web page and its same-origin resources to disk.
//
// LoadPage fetches one page, rewrites the references of its link, img and
// script elements to local paths, writes the rewritten HTML and then calls
// LoadResources to download every referenced file into a sibling directory.
// The resulting layout for http://example.test/blog/about is:
//
//	out/
//	├── example-test-blog-about.html
//	└── example-test-blog-about-resources/
//	    ├── css-site.css
//	    └── assets-pic.png
//
// Resources are downloaded concurrently on a bounded pool. A failing resource
// never stops its siblings; its outcome is recorded in the returned
// model.ResourceResult and logged. Only failures that leave no usable page
// (invalid URL, page fetch, parse, HTML write, resource directory creation)
// are returned as errors.
//
// BatchProcessor runs LoadPage for several pages at once.
package loader
