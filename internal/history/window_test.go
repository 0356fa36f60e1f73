package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repodiff/internal/history"
)

func TestDurationLadderEntries(testInstance *testing.T) {
	ladder := history.DurationLadder()
	expectedHours := []int{12, 24, 72, 168, 336, 504, 720, 2160, 4320, 8760}
	require.Len(testInstance, ladder, len(expectedHours))
	for index, hours := range expectedHours {
		require.Equal(testInstance, time.Duration(hours)*time.Hour, ladder[index].Duration, ladder[index].Label)
	}
	require.Equal(testInstance, "1 week", ladder[history.DefaultLadderIndex].Label)

	ladder[0].Label = "mutated"
	require.Equal(testInstance, "12 hours", history.DurationLadder()[0].Label)
}

func TestWindowForLadderIndex(testInstance *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	window, windowError := history.WindowForLadderIndex(now, history.DefaultLadderIndex)
	require.NoError(testInstance, windowError)
	require.Equal(testInstance, now, window.End)
	require.Equal(testInstance, now.Add(-7*24*time.Hour), window.Start)
	require.Equal(testInstance, 7*24*time.Hour, window.Span())

	_, outOfRangeError := history.WindowForLadderIndex(now, 10)
	require.ErrorIs(testInstance, outOfRangeError, history.ErrUnknownDuration)
	_, negativeError := history.WindowForLadderIndex(now, -1)
	require.ErrorIs(testInstance, negativeError, history.ErrUnknownDuration)
}

func TestNearestLadderIndex(testInstance *testing.T) {
	testCases := []struct {
		name          string
		span          time.Duration
		expectedIndex int
	}{
		{name: "exact_week", span: 168 * time.Hour, expectedIndex: 3},
		{name: "slightly_over_week", span: 170 * time.Hour, expectedIndex: 3},
		{name: "zero_span", span: 0, expectedIndex: 0},
		{name: "negative_span", span: -time.Hour, expectedIndex: 0},
		{name: "beyond_year", span: 20000 * time.Hour, expectedIndex: 9},
		{name: "tie_prefers_shorter", span: 18 * time.Hour, expectedIndex: 0},
		{name: "closer_to_month", span: 700 * time.Hour, expectedIndex: 6},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedIndex, history.NearestLadderIndex(testCase.span))
		})
	}
}

func TestParseLadderSelection(testInstance *testing.T) {
	testCases := []struct {
		name          string
		selection     string
		expectedIndex int
		expectError   bool
	}{
		{name: "numeric_index", selection: "4", expectedIndex: 4},
		{name: "key", selection: "3mo", expectedIndex: 7},
		{name: "label_case_insensitive", selection: " 1 Year ", expectedIndex: 9},
		{name: "out_of_range", selection: "12", expectError: true},
		{name: "unknown", selection: "fortnight", expectError: true},
		{name: "empty", selection: "  ", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			index, parseError := history.ParseLadderSelection(testCase.selection)
			if testCase.expectError {
				require.ErrorIs(testInstance, parseError, history.ErrUnknownDuration)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedIndex, index)
		})
	}
}
