package diff

import (
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/export"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/utils/flags"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current diff configuration.
type ConfigurationProvider func() CommandConfiguration

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveClock(clock history.Clock) history.Clock {
	if clock == nil {
		return history.SystemClock{}
	}
	return clock
}

func formatChoices(defaultFormat string) flags.ChoiceSet {
	return flags.NewChoiceSet(formatChoiceSubjectConstant, defaultFormat, export.SupportedFormats())
}
