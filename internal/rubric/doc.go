// Package rubric deduplicates scoring rubrics across an imported course
// tree.
//
// Two passes run over the inline rubric.yaml documents. The first extracts
// whole rubrics used verbatim by two or more assignments into the shared
// rubrics/ store and rewrites the sources to use_rubric references. The
// second extracts individual criterion rows that still appear in two or
// more documents into rubrics/rows/ and replaces each occurrence with a
// {{rubric_row:slug}} placeholder. Identity is a fingerprint over the
// normalized YAML content, so formatting and key order never defeat the
// match. Running the passes again over an unchanged tree writes nothing.
package rubric
