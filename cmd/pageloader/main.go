// Package main provides the entry point for the pageloader CLI.
//
// pageloader saves a web page to disk together with the stylesheets,
// images and scripts it references on its own origin, rewriting the page
// so that it opens offline.
//
// Usage:
//
//	pageloader load <url>
//	pageloader load -o ./mirror <url> <url>...
//	pageloader history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
