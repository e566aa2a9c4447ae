// Package importer orchestrates a full cartridge import run: extraction
// into scratch space, manifest parsing, resource transformation, course tree
// writing, asset registry updates, and the rubric dedup passes. Fatal
// conditions abort the run with a wrapped error; per-resource problems are
// collected on the run report instead.
package importer
