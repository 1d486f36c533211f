package markup

import (
	"slices"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>About</title>
	<link rel="stylesheet" href="/css/site.css">
	<link rel="canonical" href="https://example.test/blog/about">
	<script src="https://cdn.other.test/lib.js"></script>
</head>
<body>
	<img src="/assets/pic.png" alt="pic">
	<img src="">
	<img alt="no source">
	<img src="data:image/png;base64,iVBORw0KGgo=">
	<a href="/not-a-resource">link</a>
	<script src="js/app.js"></script>
	<script>console.log("inline")</script>
	<img src="/assets/pic.png">
</body>
</html>`

// TestIsSameOrigin tests reference classification.
func TestIsSameOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "absolute path", value: "/css/site.css", want: true},
		{name: "relative path", value: "img/logo.png", want: true},
		{name: "dot relative path", value: "../js/app.js", want: true},
		{name: "path with query", value: "/app.js?v=2", want: true},
		{name: "absolute url", value: "https://cdn.other.test/lib.js", want: false},
		{name: "protocol relative url", value: "//cdn.other.test/lib.js", want: false},
		{name: "data uri", value: "data:image/png;base64,AAAA", want: false},
		{name: "javascript uri", value: "javascript:void(0)", want: false},
		{name: "fragment only", value: "#top", want: false},
		{name: "invalid escape", value: "/bad%zz", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsSameOrigin(tt.value); got != tt.want {
				t.Errorf("IsSameOrigin(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestExtractLinks tests same-origin link extraction.
func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("returns same-origin links grouped by tag in document order", func(t *testing.T) {
		t.Parallel()

		links, err := ExtractLinksFromBytes([]byte(samplePage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"/css/site.css",
			"/assets/pic.png",
			"/assets/pic.png",
			"js/app.js",
		}
		if !slices.Equal(links, want) {
			t.Errorf("expected %v, got %v", want, links)
		}
	})

	t.Run("never returns cross-origin links", func(t *testing.T) {
		t.Parallel()

		links, err := ExtractLinksFromBytes([]byte(samplePage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, link := range links {
			if !IsSameOrigin(link) {
				t.Errorf("cross-origin link %q extracted", link)
			}
		}
	})

	t.Run("empty document yields no links", func(t *testing.T) {
		t.Parallel()

		links, err := ExtractLinksFromBytes([]byte(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(links) != 0 {
			t.Errorf("expected no links, got %v", links)
		}
	})
}

// TestRewrite tests rewriting of references to local paths.
func TestRewrite(t *testing.T) {
	t.Parallel()

	t.Run("rewrites same-origin references", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse([]byte(samplePage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := Rewrite(doc, "example-test-blog-about-resources", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			`href="example-test-blog-about-resources/css-site.css"`,
			`src="example-test-blog-about-resources/assets-pic.png"`,
			`src="example-test-blog-about-resources/js-app.js"`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %s\n%s", want, out)
			}
		}
	})

	t.Run("leaves cross-origin and opaque references untouched", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse([]byte(samplePage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := Rewrite(doc, "res", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{
			`src="https://cdn.other.test/lib.js"`,
			`href="https://example.test/blog/about"`,
			`src="data:image/png;base64,iVBORw0KGgo="`,
			`href="/not-a-resource"`,
			`src=""`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %s\n%s", want, out)
			}
		}
	})

	t.Run("keeps unrelated content", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse([]byte(samplePage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := Rewrite(doc, "res", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{"<title>About</title>", `console.log("inline")`, "<!DOCTYPE html>"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %s", want)
			}
		}
	})

	t.Run("uses custom name function", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse([]byte(`<img src="/a.png">`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := Rewrite(doc, "dir", func(string) string { return "fixed.png" })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, `src="dir/fixed.png"`) {
			t.Errorf("expected custom name, got %s", out)
		}
	})

	t.Run("extracting after rewrite sees local paths", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse([]byte(`<link href="/css/site.css">`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := Rewrite(doc, "res", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		links := ExtractLinks(doc)
		if len(links) != 1 || links[0] != "res/css-site.css" {
			t.Errorf("expected document to be mutated in place, got %v", links)
		}
	})
}
