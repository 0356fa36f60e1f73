// Package vcs reads remote repositories through an ephemeral in-memory working copy.
//
// Client clones a remote with go-git into memory-backed storage and returns a
// WorkingCopy that answers commit log, file listing, and blob queries. Every
// clone uses fresh storage, so no state crosses fetches. Clone progress reported
// by the remote is parsed into ProgressEvent values for observers.
package vcs
