// Package fetch provides the HTTP transport used to download pages and
// their resources.
//
// Client offers two ways of reading a URL:
//
//   - Get buffers the whole body (bounded by a maximum size), for pages that
//     must be parsed and rewritten
//   - Stream returns the open body, for resources copied straight to disk
//
// Any non-2xx response is reported as a *StatusError wrapping
// ErrUnexpectedStatus. Requests can optionally be routed through a SOCKS5
// proxy, and every request carries the configured User-Agent and headers.
package fetch
