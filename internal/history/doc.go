// Package history models commit records and time windows and selects the
// commits that bound a window.
//
// SelectWindowCommits picks the representative start and end commits from a
// newest-first commit log, and the duration ladder helpers derive time windows
// from the fixed set of selectable durations.
package history
