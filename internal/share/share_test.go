package share_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/share"
)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func TestEncodeOrdersParameters(testInstance *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	encoded := share.Encode(share.Configuration{
		RepositoryURL: "https://example.com/r.git",
		Extensions:    []string{".js", ".ts"},
		Start:         start,
		End:           start.Add(7 * 24 * time.Hour),
	})
	require.Equal(testInstance, "repo=https%3A%2F%2Fexample.com%2Fr.git&ext=.js%2C.ts&start=2024-03-01T00%3A00%3A00Z&end=2024-03-08T00%3A00%3A00Z", encoded)
}

func TestShareRoundTrip(testInstance *testing.T) {
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name          string
		span          time.Duration
		expectedIndex int
	}{
		{name: "exact_week", span: 7 * 24 * time.Hour, expectedIndex: 3},
		{name: "near_three_days", span: 70 * time.Hour, expectedIndex: 2},
		{name: "near_three_months", span: 95 * 24 * time.Hour, expectedIndex: 7},
		{name: "zero_span", span: 0, expectedIndex: 0},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			original := share.Configuration{
				RepositoryURL: "https://example.com/r.git",
				Extensions:    []string{".js", ".ts"},
				Start:         start,
				End:           start.Add(testCase.span),
			}

			decoded, decodeError := share.Decode("?"+share.Encode(original), fixedClock{now: start})
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, original.RepositoryURL, decoded.RepositoryURL)
			require.Equal(testInstance, original.Extensions, decoded.Extensions)
			require.True(testInstance, original.Start.Equal(decoded.Start))
			require.True(testInstance, original.End.Equal(decoded.End))
			require.Equal(testInstance, testCase.expectedIndex, decoded.LadderIndex)
		})
	}
}

func TestDecodeDefaultsMissingInstants(testInstance *testing.T) {
	now := time.Date(2024, time.June, 1, 8, 30, 0, 0, time.UTC)

	decoded, decodeError := share.Decode("repo=https%3A%2F%2Fexample.com%2Fr.git&ext=+.go+,,", fixedClock{now: now})
	require.NoError(testInstance, decodeError)
	require.Equal(testInstance, []string{".go"}, decoded.Extensions)
	require.Equal(testInstance, history.DefaultLadderIndex, decoded.LadderIndex)
	require.Equal(testInstance, now, decoded.End)
	require.Equal(testInstance, now.Add(-7*24*time.Hour), decoded.Start)
	require.Equal(testInstance, history.TimeWindow{Start: decoded.Start, End: decoded.End}, decoded.Window())
}

func TestDecodeAcceptsFractionalSeconds(testInstance *testing.T) {
	decoded, decodeError := share.Decode("repo=r&start=2024-01-01T00:00:00.000Z&end=2024-01-02T00:00:00.000Z", nil)
	require.NoError(testInstance, decodeError)
	require.Equal(testInstance, 1, decoded.LadderIndex)
}

func TestDecodeRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name          string
		query         string
		expectedError error
	}{
		{name: "bad_start", query: "repo=r&start=yesterday&end=2024-01-02T00:00:00Z", expectedError: share.ErrInvalidInstant},
		{name: "bad_end", query: "repo=r&start=2024-01-01T00:00:00Z&end=soon", expectedError: share.ErrInvalidInstant},
		{name: "inverted", query: "repo=r&start=2024-01-02T00:00:00Z&end=2024-01-01T00:00:00Z", expectedError: share.ErrInvertedWindow},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, decodeError := share.Decode(testCase.query, nil)
			require.ErrorIs(testInstance, decodeError, testCase.expectedError)
		})
	}

	_, malformedError := share.Decode("repo=%zz", nil)
	require.Error(testInstance, malformedError)
}

func TestDecodeReportsExtensionsPresence(testInstance *testing.T) {
	emptyExtensions, emptyError := share.Decode("repo=r&ext=", nil)
	require.NoError(testInstance, emptyError)
	require.True(testInstance, emptyExtensions.ExtensionsSpecified)
	require.Empty(testInstance, emptyExtensions.Extensions)

	absentExtensions, absentError := share.Decode("repo=r", nil)
	require.NoError(testInstance, absentError)
	require.False(testInstance, absentExtensions.ExtensionsSpecified)
}
