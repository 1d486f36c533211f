package markup

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/pageloader/internal/naming"
)

// Target is a watched element and the attribute that holds its reference.
type Target struct {
	// Tag is the element name.
	Tag string

	// Attr is the attribute holding the resource reference.
	Attr string
}

// Targets lists the watched element/attribute pairs in processing order.
var Targets = []Target{
	{Tag: "link", Attr: "href"},
	{Tag: "img", Attr: "src"},
	{Tag: "script", Attr: "src"},
}

// NameFunc maps a resource reference to its local file name.
type NameFunc func(link string) string

// Parse parses an HTML body into a document.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// IsSameOrigin reports whether value is a reference relative to the page's
// own host. Values with a host, with a scheme, with no path, or that do not
// parse are not same-origin.
func IsSameOrigin(value string) bool {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return u.Host == "" && u.Scheme == "" && u.Path != ""
}

// ExtractLinks returns the same-origin references of doc in document order,
// grouped by Targets. Duplicates are kept.
func ExtractLinks(doc *goquery.Document) []string {
	links := make([]string, 0)
	eachReference(doc, func(_ *goquery.Selection, _ Target, value string) {
		links = append(links, value)
	})
	return links
}

// ExtractLinksFromBytes parses body and returns its same-origin references.
func ExtractLinksFromBytes(body []byte) ([]string, error) {
	doc, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return ExtractLinks(doc), nil
}

// Rewrite points every same-origin reference of doc at
// resourceDir/name(reference) and returns the serialized document.
// doc is modified in place. A nil name uses naming.Derive with
// naming.Resource.
func Rewrite(doc *goquery.Document, resourceDir string, name NameFunc) (string, error) {
	if name == nil {
		name = func(link string) string {
			return naming.Derive(link, naming.Resource)
		}
	}

	eachReference(doc, func(s *goquery.Selection, target Target, value string) {
		s.SetAttr(target.Attr, path.Join(resourceDir, name(value)))
	})

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return out, nil
}

// eachReference calls fn for every watched element whose attribute holds a
// non-empty same-origin reference.
func eachReference(doc *goquery.Document, fn func(*goquery.Selection, Target, string)) {
	for _, target := range Targets {
		doc.Find(target.Tag).Each(func(_ int, s *goquery.Selection) {
			value, ok := s.Attr(target.Attr)
			if !ok || value == "" || !IsSameOrigin(value) {
				return
			}
			fn(s, target, value)
		})
	}
}
