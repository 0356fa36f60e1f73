// Package utils exposes reusable helpers consumed by multiple commands.
//
// It houses ConfigurationLoader and LoggerFactory abstractions that integrate
// Viper, embedded defaults, environment variables, and zap logging for the
// repodiff CLI and HTTP server.
package utils
