// Package export renders fetch results as markdown documents, raw patches, JSON,
// or a colored console report with a per-file summary table.
package export
