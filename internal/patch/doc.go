// Package patch produces unified patches between two revisions of a file.
//
// UnifiedGenerator emits a fixed four line header (Index, separator, ---, +++)
// followed by go-difflib hunks, so callers can strip the header by line count
// and inspect the body. Line statistics are computed with a line-mode Myers
// diff from go-diff.
package patch
