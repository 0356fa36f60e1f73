package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/temirov/repodiff/internal/fetch"
)

const (
	markdownTitleTemplateConstant      = "# Diff for %s\n\n"
	markdownDateRangeTemplateConstant  = "_%s to %s_\n"
	markdownSectionTemplateConstant    = "\n## %s\n\n"
	markdownFenceOpenTemplateConstant  = "%sdiff\n"
	markdownFenceCloseTemplateConstant = "%s\n"
	markdownFenceCharacterConstant     = "`"
	markdownMinimumFenceLengthConstant = 3
	markdownLineTerminatorConstant     = "\n"
)

// MarkdownRenderer writes a document with a title, a date range line, and one fenced diff block per file.
type MarkdownRenderer struct{}

// Render writes result as markdown.
func (MarkdownRenderer) Render(writer io.Writer, result fetch.FetchResult) error {
	documentBuilder := &strings.Builder{}
	fmt.Fprintf(documentBuilder, markdownTitleTemplateConstant, result.RepositoryURL)
	fmt.Fprintf(documentBuilder, markdownDateRangeTemplateConstant,
		result.Window.Start.UTC().Format(time.RFC3339),
		result.Window.End.UTC().Format(time.RFC3339),
	)

	for _, fileDiff := range result.Files {
		fence := fenceFor(fileDiff.PatchText)
		fmt.Fprintf(documentBuilder, markdownSectionTemplateConstant, fileDiff.Path)
		fmt.Fprintf(documentBuilder, markdownFenceOpenTemplateConstant, fence)
		documentBuilder.WriteString(fileDiff.PatchText)
		if !strings.HasSuffix(fileDiff.PatchText, markdownLineTerminatorConstant) {
			documentBuilder.WriteString(markdownLineTerminatorConstant)
		}
		fmt.Fprintf(documentBuilder, markdownFenceCloseTemplateConstant, fence)
	}

	_, writeError := io.WriteString(writer, documentBuilder.String())
	return writeError
}

// fenceFor returns a backtick fence longer than any backtick run inside content.
func fenceFor(content string) string {
	longestRun := 0
	currentRun := 0
	for _, character := range content {
		if string(character) == markdownFenceCharacterConstant {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
			continue
		}
		currentRun = 0
	}

	fenceLength := markdownMinimumFenceLengthConstant
	if longestRun >= fenceLength {
		fenceLength = longestRun + 1
	}
	return strings.Repeat(markdownFenceCharacterConstant, fenceLength)
}
