package share

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
)

// Query parameter names.
const (
	RepositoryParameter = "repo"
	ExtensionsParameter = "ext"
	StartParameter      = "start"
	EndParameter        = "end"
)

const (
	queryPrefixConstant            = "?"
	parameterSeparatorConstant     = "&"
	keyValueSeparatorConstant      = "="
	extensionSeparatorConstant     = ","
	malformedQueryTemplateConstant = "malformed share query: %w"
	invalidInstantTemplateConstant = "%w: %s=%q"
	invalidInstantMessageConstant  = "invalid instant"
	invertedWindowMessageConstant  = "window end precedes its start"
)

var (
	// ErrInvalidInstant indicates a start or end parameter that is not an RFC 3339 timestamp.
	ErrInvalidInstant = errors.New(invalidInstantMessageConstant)
	// ErrInvertedWindow indicates an end instant earlier than the start instant.
	ErrInvertedWindow = errors.New(invertedWindowMessageConstant)
)

// Configuration is the shareable state of a diff view.
type Configuration struct {
	RepositoryURL string
	Extensions    []string
	Start         time.Time
	End           time.Time
	// ExtensionsSpecified reports that the decoded query carried an ext parameter. An empty ext selects every file.
	ExtensionsSpecified bool
	// LadderIndex is the duration ladder entry closest to End minus Start.
	LadderIndex int
}

// Window returns the configured time window.
func (configuration Configuration) Window() history.TimeWindow {
	return history.TimeWindow{Start: configuration.Start, End: configuration.End}
}

// Encode renders configuration as repo, ext, start, and end query parameters in that order.
// Instants are written as RFC 3339 UTC timestamps.
func Encode(configuration Configuration) string {
	parameters := []string{
		encodeParameter(RepositoryParameter, configuration.RepositoryURL),
		encodeParameter(ExtensionsParameter, strings.Join(configuration.Extensions, extensionSeparatorConstant)),
		encodeParameter(StartParameter, configuration.Start.UTC().Format(time.RFC3339)),
		encodeParameter(EndParameter, configuration.End.UTC().Format(time.RFC3339)),
	}
	return strings.Join(parameters, parameterSeparatorConstant)
}

// Decode reconstructs a Configuration from a query string with or without a leading question mark.
// When either instant is absent the default ladder window ending at clock's now is used.
func Decode(query string, clock history.Clock) (Configuration, error) {
	if clock == nil {
		clock = history.SystemClock{}
	}

	values, parseError := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(query), queryPrefixConstant))
	if parseError != nil {
		return Configuration{}, fmt.Errorf(malformedQueryTemplateConstant, parseError)
	}

	configuration := Configuration{
		RepositoryURL:       strings.TrimSpace(values.Get(RepositoryParameter)),
		Extensions:          fetch.ParseExtensions(values.Get(ExtensionsParameter)),
		ExtensionsSpecified: values.Has(ExtensionsParameter),
	}

	startText := strings.TrimSpace(values.Get(StartParameter))
	endText := strings.TrimSpace(values.Get(EndParameter))
	if len(startText) == 0 || len(endText) == 0 {
		defaultWindow, windowError := history.WindowForLadderIndex(clock.Now(), history.DefaultLadderIndex)
		if windowError != nil {
			return Configuration{}, windowError
		}
		configuration.Start = defaultWindow.Start
		configuration.End = defaultWindow.End
		configuration.LadderIndex = history.DefaultLadderIndex
		return configuration, nil
	}

	start, startError := parseInstant(StartParameter, startText)
	if startError != nil {
		return Configuration{}, startError
	}
	end, endError := parseInstant(EndParameter, endText)
	if endError != nil {
		return Configuration{}, endError
	}
	if end.Before(start) {
		return Configuration{}, ErrInvertedWindow
	}

	configuration.Start = start
	configuration.End = end
	configuration.LadderIndex = history.NearestLadderIndex(end.Sub(start))
	return configuration, nil
}

func encodeParameter(name string, value string) string {
	return name + keyValueSeparatorConstant + url.QueryEscape(value)
}

func parseInstant(name string, text string) (time.Time, error) {
	instant, parseError := time.Parse(time.RFC3339, text)
	if parseError != nil {
		return time.Time{}, fmt.Errorf(invalidInstantTemplateConstant, ErrInvalidInstant, name, text)
	}
	return instant.UTC(), nil
}
