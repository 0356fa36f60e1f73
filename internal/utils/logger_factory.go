package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	jsonZapEncodingStringConstant        = "json"
	consoleZapEncodingStringConstant     = "console"
	standardErrorSinkConstant            = "stderr"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
)

// LogLevel selects how much of a fetch is reported. Info carries fetch progress. Debug adds
// clone steps and skipped binary files. Warn keeps only recovered read failures.
type LogLevel string

const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat selects the log encoding. Console suits a person running the diff command in a
// terminal. Structured emits one JSON object per line for the serve command's log collectors.
type LogFormat string

const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// SupportedLogFormats lists the accepted log format names in display order.
func SupportedLogFormats() []string {
	return []string{string(LogFormatStructured), string(LogFormatConsole)}
}

// LoggerFactory builds the zap loggers shared by the diff and serve commands.
type LoggerFactory struct{}

var zapLevelByLogLevel = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

var zapEncodingByLogFormat = map[LogFormat]string{
	LogFormatStructured: jsonZapEncodingStringConstant,
	LogFormatConsole:    consoleZapEncodingStringConstant,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger builds a logger for requestedLogLevel and requestedLogFormat. Both are matched
// case-insensitively after trimming.
//
// Every entry goes to standard error. Standard output carries the rendered report and must
// stay pipeable into other tools.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	zapLogLevel, levelExists := zapLevelByLogLevel[LogLevel(normalizeLoggerSetting(string(requestedLogLevel)))]
	if !levelExists {
		return nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	normalizedLogFormat := LogFormat(normalizeLoggerSetting(string(requestedLogFormat)))
	encoding, formatExists := zapEncodingByLogFormat[normalizedLogFormat]
	if !formatExists {
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	configuration := zap.NewProductionConfig()
	configuration.Level = zap.NewAtomicLevelAt(zapLogLevel)
	configuration.Encoding = encoding
	configuration.OutputPaths = []string{standardErrorSinkConstant}
	configuration.ErrorOutputPaths = []string{standardErrorSinkConstant}
	if normalizedLogFormat == LogFormatConsole {
		useTerminalEncoding(&configuration)
	}

	return configuration.Build()
}

// useTerminalEncoding keeps read warnings short and turns off sampling so none are lost
// during a large fetch.
func useTerminalEncoding(configuration *zap.Config) {
	configuration.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	configuration.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	configuration.DisableCaller = true
	configuration.DisableStacktrace = true
	configuration.Sampling = nil
}

func normalizeLoggerSetting(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
