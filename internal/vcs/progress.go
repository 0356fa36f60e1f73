package vcs

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const (
	progressLineSeparatorsConstant  = "\r\n"
	progressPercentageScaleConstant = 100
)

var (
	progressRatioPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s+\d+%\s+\((\d+)/(\d+)\)`)
	progressCountPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s+(\d+)`)
)

// ProgressEvent describes the latest reported clone phase.
// Total is zero when the phase reports no known upper bound.
type ProgressEvent struct {
	Phase  string
	Loaded int64
	Total  int64
}

// Percentage returns the completed share of the phase, or -1 when no total is known.
func (event ProgressEvent) Percentage() int {
	if event.Total <= 0 {
		return -1
	}
	return int(event.Loaded * progressPercentageScaleConstant / event.Total)
}

// ProgressObserver receives clone progress updates.
type ProgressObserver interface {
	OnProgress(event ProgressEvent)
}

// ProgressObserverFunc adapts a function to ProgressObserver.
type ProgressObserverFunc func(event ProgressEvent)

// OnProgress calls the wrapped function.
func (observerFunc ProgressObserverFunc) OnProgress(event ProgressEvent) {
	observerFunc(event)
}

// progressWriter turns sideband progress text into ProgressEvent notifications.
type progressWriter struct {
	observer ProgressObserver
	mutex    sync.Mutex
	pending  strings.Builder
}

func newProgressWriter(observer ProgressObserver) *progressWriter {
	return &progressWriter{observer: observer}
}

// Write buffers partial lines and emits one event per complete progress line.
func (writer *progressWriter) Write(data []byte) (int, error) {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()

	for _, character := range string(data) {
		if strings.ContainsRune(progressLineSeparatorsConstant, character) {
			writer.flushLine()
			continue
		}
		writer.pending.WriteRune(character)
	}
	return len(data), nil
}

func (writer *progressWriter) flushLine() {
	line := strings.TrimSpace(writer.pending.String())
	writer.pending.Reset()
	if len(line) == 0 || writer.observer == nil {
		return
	}

	event, parsed := ParseProgressLine(line)
	if !parsed {
		return
	}
	writer.observer.OnProgress(event)
}

// ParseProgressLine extracts a ProgressEvent from a single line of remote progress output
// such as "Receiving objects:  45% (9/20)" or "Enumerating objects: 20, done.".
func ParseProgressLine(line string) (ProgressEvent, bool) {
	trimmedLine := strings.TrimSpace(line)

	if ratioMatch := progressRatioPattern.FindStringSubmatch(trimmedLine); ratioMatch != nil {
		loaded, _ := strconv.ParseInt(ratioMatch[2], 10, 64)
		total, _ := strconv.ParseInt(ratioMatch[3], 10, 64)
		return ProgressEvent{Phase: strings.TrimSpace(ratioMatch[1]), Loaded: loaded, Total: total}, true
	}

	if countMatch := progressCountPattern.FindStringSubmatch(trimmedLine); countMatch != nil {
		loaded, _ := strconv.ParseInt(countMatch[2], 10, 64)
		return ProgressEvent{Phase: strings.TrimSpace(countMatch[1]), Loaded: loaded}, true
	}

	return ProgressEvent{}, false
}
