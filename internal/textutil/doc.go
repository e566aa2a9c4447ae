// Package textutil provides text processing utilities for filename
// sanitization, slug derivation, and display-title fallback.
//
// The primary use cases are:
//   - Sanitizing content titles into directory and file names
//   - Deriving lowercase slugs for shared rubric store entries
//   - Producing a human-readable title from a path or identifier when the
//     manifest supplies none
package textutil
