// Package report renders load results and load history.
//
// Three writers implement Writer:
//   - SimpleWriter: plain text for the terminal (default)
//   - JSONWriter: JSON for scripts and other tools
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid pie chart
package report
