// Package cli constructs the repodiff command-line interface, wiring the
// Cobra command hierarchy, the Viper configuration loader with embedded
// defaults, and structured logging. It exposes helpers to build application
// instances and to execute the default command set.
package cli
