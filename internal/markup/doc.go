// Package markup discovers and rewrites the resource references of an HTML
// page.
//
// Three tag/attribute pairs are watched, in this order:
//
//	link   href
//	img    src
//	script src
//
// Only same-origin references are considered: values that carry no host
// (for example "/css/site.css" or "img/logo.png"). Absolute and
// protocol-relative URLs, as well as opaque values such as data: or
// javascript: URIs, are left alone.
//
// Documents are handled through goquery, which sits on top of
// golang.org/x/net/html for parsing and rendering.
package markup
