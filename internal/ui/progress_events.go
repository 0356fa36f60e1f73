package ui

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/vcs"
)

const (
	progressPercentageMessageTemplateConstant = "%s: %d%% (%d/%d)"
	progressCountMessageTemplateConstant      = "%s: %d"
	fetchStartedMessageTemplateConstant       = "Fetching %s"
	fetchCompletedMessageTemplateConstant     = "Found %d changed %s between %s and %s"
	fetchFailedMessageTemplateConstant        = "Fetch of %s failed: %s"
	singularFileNounConstant                  = "file"
	pluralFileNounConstant                    = "files"
	unknownFailureMessageConstant             = "unknown error"
)

// ProgressEventFormatter builds human-readable messages for clone progress and fetch lifecycle events.
type ProgressEventFormatter struct{}

// BuildProgressMessage formats the latest phase and, when known, its percentage.
func (formatter ProgressEventFormatter) BuildProgressMessage(event vcs.ProgressEvent) string {
	percentage := event.Percentage()
	if percentage < 0 {
		return fmt.Sprintf(progressCountMessageTemplateConstant, event.Phase, event.Loaded)
	}
	return fmt.Sprintf(progressPercentageMessageTemplateConstant, event.Phase, percentage, event.Loaded, event.Total)
}

// BuildStartedMessage formats the message announcing a fetch.
func (formatter ProgressEventFormatter) BuildStartedMessage(repositoryURL string) string {
	return fmt.Sprintf(fetchStartedMessageTemplateConstant, repositoryURL)
}

// BuildCompletedMessage formats the message summarizing a successful fetch.
func (formatter ProgressEventFormatter) BuildCompletedMessage(fileCount int, startCommitID string, endCommitID string) string {
	fileNoun := pluralFileNounConstant
	if fileCount == 1 {
		fileNoun = singularFileNounConstant
	}
	return fmt.Sprintf(fetchCompletedMessageTemplateConstant, fileCount, fileNoun, startCommitID, endCommitID)
}

// BuildFailureMessage formats the message describing a failed fetch.
func (formatter ProgressEventFormatter) BuildFailureMessage(repositoryURL string, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(fetchFailedMessageTemplateConstant, repositoryURL, failureMessage)
}

// ConsoleProgressLogger renders fetch progress using a zap logger configured for human-readable output.
// Repeated progress events with an unchanged phase and percentage are suppressed.
type ConsoleProgressLogger struct {
	logger         *zap.Logger
	formatter      ProgressEventFormatter
	mutex          sync.Mutex
	lastPhase      string
	lastPercentage int
	lastLoaded     int64
}

// NewConsoleProgressLogger constructs a console progress logger backed by the provided zap logger.
func NewConsoleProgressLogger(logger *zap.Logger) *ConsoleProgressLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleProgressLogger{logger: logger, formatter: ProgressEventFormatter{}}
}

// OnProgress implements vcs.ProgressObserver by logging the latest phase and percentage.
func (progressLogger *ConsoleProgressLogger) OnProgress(event vcs.ProgressEvent) {
	if progressLogger == nil {
		return
	}

	progressLogger.mutex.Lock()
	percentage := event.Percentage()
	unchanged := event.Phase == progressLogger.lastPhase && percentage == progressLogger.lastPercentage
	if percentage < 0 {
		unchanged = unchanged && event.Loaded == progressLogger.lastLoaded
	}
	progressLogger.lastPhase = event.Phase
	progressLogger.lastPercentage = percentage
	progressLogger.lastLoaded = event.Loaded
	progressLogger.mutex.Unlock()

	if unchanged {
		return
	}
	progressLogger.logger.Info(progressLogger.formatter.BuildProgressMessage(event))
}

// FetchStarted logs the start of a fetch.
func (progressLogger *ConsoleProgressLogger) FetchStarted(repositoryURL string) {
	if progressLogger == nil {
		return
	}
	progressLogger.reset()
	progressLogger.logger.Info(progressLogger.formatter.BuildStartedMessage(repositoryURL))
}

// FetchCompleted logs a summary of a successful fetch.
func (progressLogger *ConsoleProgressLogger) FetchCompleted(fileCount int, startCommitID string, endCommitID string) {
	if progressLogger == nil {
		return
	}
	progressLogger.logger.Info(progressLogger.formatter.BuildCompletedMessage(fileCount, startCommitID, endCommitID))
}

// FetchFailed logs a failed fetch.
func (progressLogger *ConsoleProgressLogger) FetchFailed(repositoryURL string, failure error) {
	if progressLogger == nil {
		return
	}
	progressLogger.logger.Error(progressLogger.formatter.BuildFailureMessage(repositoryURL, failure))
}

func (progressLogger *ConsoleProgressLogger) reset() {
	progressLogger.mutex.Lock()
	defer progressLogger.mutex.Unlock()
	progressLogger.lastPhase = ""
	progressLogger.lastPercentage = 0
	progressLogger.lastLoaded = 0
}
