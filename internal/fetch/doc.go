// Package fetch implements the one-shot workflow that turns a repository URL and a
// time window into per-file unified patches.
//
// Service clones the remote into a fresh working copy, selects the commits that
// bound the window, and hands the file listing to Assembler, which reads both
// revisions of every matching file and keeps only files whose patch adds or
// removes lines. Per-file read failures become FileWarning values; clone and log
// failures surface as UpstreamFetchError.
package fetch
