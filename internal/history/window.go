package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	hoursPerDayConstant = 24

	ladderKeyTwelveHoursConstant   = "12h"
	ladderKeyOneDayConstant        = "1d"
	ladderKeyThreeDaysConstant     = "3d"
	ladderKeyOneWeekConstant       = "1w"
	ladderKeyTwoWeeksConstant      = "2w"
	ladderKeyThreeWeeksConstant    = "3w"
	ladderKeyOneMonthConstant      = "1mo"
	ladderKeyThreeMonthsConstant   = "3mo"
	ladderKeySixMonthsConstant     = "6mo"
	ladderKeyOneYearConstant       = "1y"
	ladderLabelTwelveHoursConstant = "12 hours"
	ladderLabelOneDayConstant      = "1 day"
	ladderLabelThreeDaysConstant   = "3 days"
	ladderLabelOneWeekConstant     = "1 week"
	ladderLabelTwoWeeksConstant    = "2 weeks"
	ladderLabelThreeWeeksConstant  = "3 weeks"
	ladderLabelOneMonthConstant    = "1 month"
	ladderLabelThreeMonthsConstant = "3 months"
	ladderLabelSixMonthsConstant   = "6 months"
	ladderLabelOneYearConstant     = "1 year"

	ladderIndexOutOfRangeTemplateConstant  = "duration index %d out of range [0, %d]: %w"
	unknownLadderSelectionTemplateConstant = "%w: %q"
	unknownDurationMessageConstant         = "unknown duration selection"
)

// DefaultLadderIndex selects the one week entry.
const DefaultLadderIndex = 3

// ErrUnknownDuration indicates a duration selection that does not name a ladder entry.
var ErrUnknownDuration = errors.New(unknownDurationMessageConstant)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// TimeWindow bounds a range of instants.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Span returns the distance between the window bounds.
func (window TimeWindow) Span() time.Duration {
	return window.End.Sub(window.Start)
}

// DurationOption is one selectable entry of the duration ladder.
type DurationOption struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration"`
}

var durationLadder = []DurationOption{
	{Key: ladderKeyTwelveHoursConstant, Label: ladderLabelTwelveHoursConstant, Duration: 12 * time.Hour},
	{Key: ladderKeyOneDayConstant, Label: ladderLabelOneDayConstant, Duration: 1 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyThreeDaysConstant, Label: ladderLabelThreeDaysConstant, Duration: 3 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyOneWeekConstant, Label: ladderLabelOneWeekConstant, Duration: 7 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyTwoWeeksConstant, Label: ladderLabelTwoWeeksConstant, Duration: 14 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyThreeWeeksConstant, Label: ladderLabelThreeWeeksConstant, Duration: 21 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyOneMonthConstant, Label: ladderLabelOneMonthConstant, Duration: 30 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyThreeMonthsConstant, Label: ladderLabelThreeMonthsConstant, Duration: 90 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeySixMonthsConstant, Label: ladderLabelSixMonthsConstant, Duration: 180 * hoursPerDayConstant * time.Hour},
	{Key: ladderKeyOneYearConstant, Label: ladderLabelOneYearConstant, Duration: 365 * hoursPerDayConstant * time.Hour},
}

// DurationLadder returns a copy of the selectable durations ordered from shortest to longest.
func DurationLadder() []DurationOption {
	ladder := make([]DurationOption, len(durationLadder))
	copy(ladder, durationLadder)
	return ladder
}

// LadderOption returns the ladder entry at index.
func LadderOption(index int) (DurationOption, error) {
	if index < 0 || index >= len(durationLadder) {
		return DurationOption{}, fmt.Errorf(ladderIndexOutOfRangeTemplateConstant, index, len(durationLadder)-1, ErrUnknownDuration)
	}
	return durationLadder[index], nil
}

// WindowForLadderIndex derives the window ending at now and spanning the ladder entry at index.
func WindowForLadderIndex(now time.Time, index int) (TimeWindow, error) {
	option, optionError := LadderOption(index)
	if optionError != nil {
		return TimeWindow{}, optionError
	}
	return TimeWindow{Start: now.Add(-option.Duration), End: now}, nil
}

// NearestLadderIndex returns the index of the ladder entry whose duration is closest to span.
// Equal distances resolve to the shorter entry.
func NearestLadderIndex(span time.Duration) int {
	nearestIndex := 0
	nearestDistance := absoluteDuration(span - durationLadder[0].Duration)
	for index := 1; index < len(durationLadder); index++ {
		distance := absoluteDuration(span - durationLadder[index].Duration)
		if distance < nearestDistance {
			nearestIndex = index
			nearestDistance = distance
		}
	}
	return nearestIndex
}

// ParseLadderSelection resolves a ladder index, key, or label into a ladder index.
func ParseLadderSelection(selection string) (int, error) {
	trimmedSelection := strings.TrimSpace(selection)
	if len(trimmedSelection) == 0 {
		return 0, ErrUnknownDuration
	}

	numericIndex, conversionError := strconv.Atoi(trimmedSelection)
	if conversionError == nil {
		if _, optionError := LadderOption(numericIndex); optionError != nil {
			return 0, optionError
		}
		return numericIndex, nil
	}

	for index, option := range durationLadder {
		if strings.EqualFold(option.Key, trimmedSelection) || strings.EqualFold(option.Label, trimmedSelection) {
			return index, nil
		}
	}

	return 0, fmt.Errorf(unknownLadderSelectionTemplateConstant, ErrUnknownDuration, selection)
}

func absoluteDuration(value time.Duration) time.Duration {
	if value < 0 {
		return -value
	}
	return value
}
