// Package cartridge extracts and models IMS Common Cartridge archives.
//
// The package covers the untrusted half of an import run: validated zip
// extraction, manifest parsing with namespace-tolerant lookup, resource
// classification, and transformation of classified resources into typed
// content records. Everything downstream of TransformResources operates on
// plain Go values and never touches the archive again.
package cartridge
