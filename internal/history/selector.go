package history

import "errors"

const emptyHistoryMessageConstant = "commit history is empty"

// ErrEmptyHistory indicates the commit log contained no entries.
var ErrEmptyHistory = errors.New(emptyHistoryMessageConstant)

// WindowCommits holds the commits chosen to represent a time window.
type WindowCommits struct {
	Start CommitRecord
	End   CommitRecord
	// StartSubstituted reports that no commit preceded the window start and the oldest commit was used.
	StartSubstituted bool
	// EndSubstituted reports that no commit preceded the window end and the newest commit was used.
	EndSubstituted bool
}

// SelectWindowCommits picks the start and end commits for window from a newest-first commit history.
//
// The end commit is the first commit at or before window.End, falling back to the newest commit.
// The start commit is the first commit at or before window.Start, falling back to the oldest commit.
// Ties resolve to the first match in the supplied order.
func SelectWindowCommits(commitHistory []CommitRecord, window TimeWindow) (WindowCommits, error) {
	if len(commitHistory) == 0 {
		return WindowCommits{}, ErrEmptyHistory
	}

	selection := WindowCommits{}

	endCommit, endFound := firstCommitAtOrBefore(commitHistory, window.End.Unix())
	if !endFound {
		endCommit = commitHistory[0]
		selection.EndSubstituted = true
	}
	selection.End = endCommit

	startCommit, startFound := firstCommitAtOrBefore(commitHistory, window.Start.Unix())
	if !startFound {
		startCommit = commitHistory[len(commitHistory)-1]
		selection.StartSubstituted = true
	}
	selection.Start = startCommit

	return selection, nil
}

func firstCommitAtOrBefore(commitHistory []CommitRecord, boundarySeconds int64) (CommitRecord, bool) {
	for _, commitRecord := range commitHistory {
		if commitRecord.TimestampSeconds <= boundarySeconds {
			return commitRecord, true
		}
	}
	return CommitRecord{}, false
}
