package patch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineStatistics counts the lines added and removed between two contents.
type LineStatistics struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// ComputeLineStatistics runs a line-mode diff of oldContent against newContent and counts changed lines.
func ComputeLineStatistics(oldContent string, newContent string) LineStatistics {
	differ := diffmatchpatch.New()
	oldCharacters, newCharacters, lineArray := differ.DiffLinesToChars(oldContent, newContent)
	lineDiffs := differ.DiffCharsToLines(differ.DiffMain(oldCharacters, newCharacters, false), lineArray)

	statistics := LineStatistics{}
	for _, lineDiff := range lineDiffs {
		switch lineDiff.Type {
		case diffmatchpatch.DiffInsert:
			statistics.Added += countLines(lineDiff.Text)
		case diffmatchpatch.DiffDelete:
			statistics.Removed += countLines(lineDiff.Text)
		}
	}
	return statistics
}

func countLines(text string) int {
	if len(text) == 0 {
		return 0
	}
	lineCount := strings.Count(text, bodyLineSeparatorConstant)
	if !strings.HasSuffix(text, bodyLineSeparatorConstant) {
		lineCount++
	}
	return lineCount
}
