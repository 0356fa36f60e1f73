// Package ui provides helpers for formatting human-readable console output.
//
// The helpers translate clone progress and fetch lifecycle events into concise
// messages so that long-running fetches stay visible to CLI users while
// detailed telemetry continues to flow through structured loggers.
package ui
