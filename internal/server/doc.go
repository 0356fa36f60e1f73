// Package server hosts the repodiff HTTP surface.
//
// The handler exposes the diff API backed by a fetch service, the markdown
// export, the duration ladder, the CORS relay under its prefix, and Prometheus
// metrics. Every request is traced with OpenTelemetry. The serve command wires
// these pieces from configuration and runs them until its context is cancelled.
package server
