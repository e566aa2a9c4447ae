// Package markdown wraps HTML to markdown conversion for cartridge payloads.
//
// Conversion itself is delegated to the html-to-markdown library; this
// package adds the output normalization the writers depend on (line ending
// and blank-line cleanup) plus the tag stripping and title extraction used
// for question stems and page title fallback.
package markdown
