// Package forms holds the quote-request wizard definitions and the registry
// that loads, lints and hot-reloads them. The eight bundled products live in
// definitions/ as YAML and are embedded into the binary.
package forms
