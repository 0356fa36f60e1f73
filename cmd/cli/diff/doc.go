// Package diff provides the diff and ranges commands of the repodiff CLI.
package diff
