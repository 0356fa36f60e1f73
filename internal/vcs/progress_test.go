package vcs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repodiff/internal/vcs"
)

func TestParseProgressLine(testInstance *testing.T) {
	testCases := []struct {
		name               string
		line               string
		expectedEvent      vcs.ProgressEvent
		expectedPercentage int
		expectParsed       bool
	}{
		{
			name:               "ratio",
			line:               "Receiving objects:  45% (9/20)",
			expectedEvent:      vcs.ProgressEvent{Phase: "Receiving objects", Loaded: 9, Total: 20},
			expectedPercentage: 45,
			expectParsed:       true,
		},
		{
			name:               "ratio_done",
			line:               "Compressing objects: 100% (6/6), done.",
			expectedEvent:      vcs.ProgressEvent{Phase: "Compressing objects", Loaded: 6, Total: 6},
			expectedPercentage: 100,
			expectParsed:       true,
		},
		{
			name:               "count_only",
			line:               "Enumerating objects: 20, done.",
			expectedEvent:      vcs.ProgressEvent{Phase: "Enumerating objects", Loaded: 20},
			expectedPercentage: -1,
			expectParsed:       true,
		},
		{name: "summary_line", line: "Total 20 (delta 3), reused 0 (delta 0)"},
		{name: "blank", line: "   "},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			event, parsed := vcs.ParseProgressLine(testCase.line)
			require.Equal(testInstance, testCase.expectParsed, parsed)
			if !testCase.expectParsed {
				return
			}
			require.Equal(testInstance, testCase.expectedEvent, event)
			require.Equal(testInstance, testCase.expectedPercentage, event.Percentage())
		})
	}
}

func TestRelayedURL(testInstance *testing.T) {
	relayed, relayError := vcs.RelayedURL("https://relay.example.com/cors/", "https://github.com/octocat/hello-world.git")
	require.NoError(testInstance, relayError)
	require.Equal(testInstance, "https://relay.example.com/cors/github.com/octocat/hello-world.git", relayed)

	_, sshError := vcs.RelayedURL("https://relay.example.com", "git@github.com:octocat/hello-world.git")
	require.ErrorIs(testInstance, sshError, vcs.ErrRelayRequiresHTTP)

	_, invalidError := vcs.RelayedURL("https://relay.example.com", "not a url")
	require.Error(testInstance, invalidError)
}
