// Package assetreg persists the mapping between local asset files and their
// uploaded counterparts so repeated publishes of a course tree never upload
// the same bytes twice.
//
// The registry is a single JSON document under _course_metadata/ keyed by a
// short content hash. One entry covers every local path whose bytes are
// identical; lookups fall back from exact path aliases to a fresh content
// hash and finally to a bare filename match. Writers take an advisory file
// lock so concurrent zaphod processes serialize their saves.
package assetreg
