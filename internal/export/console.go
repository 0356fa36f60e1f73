package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/gitrepo"
	"github.com/temirov/repodiff/internal/history"
)

const (
	consoleHeadingTemplateConstant     = "%s\n"
	consoleEndpointTemplateConstant    = "%-5s %s %s (%s)\n"
	consoleSubstitutedSuffixConstant   = ", oldest fetched commit"
	consoleAgoLabelConstant            = "ago"
	consoleFromNowLabelConstant        = "from now"
	consoleTimestampLayoutConstant     = "2006-01-02 15:04:05Z07:00"
	consoleStartLabelConstant          = "from"
	consoleEndLabelConstant            = "to"
	consoleNoChangesMessageConstant    = "No changes in the selected window.\n"
	consoleFileHeadingTemplateConstant = "\n%s\n"
	consoleWarningTemplateConstant     = "warning: %s (%s): %s\n"
	consoleSkippedTemplateConstant     = "skipped binary file: %s\n"
	consoleAddedTemplateConstant       = "+%d"
	consoleRemovedTemplateConstant     = "-%d"
	consoleTotalTemplateConstant       = "%d files"
	consoleFileColumnConstant          = "File"
	consoleLanguageColumnConstant      = "Language"
	consoleAddedColumnConstant         = "Added"
	consoleRemovedColumnConstant       = "Removed"
	consoleLineSeparatorConstant       = "\n"
	consoleAdditionPrefixConstant      = "+"
	consoleRemovalPrefixConstant       = "-"
	consoleHunkPrefixConstant          = "@@"
)

// ConsoleRenderer writes a human-oriented report: commit endpoints with relative ages,
// a summary table, and the patch bodies with colored additions and removals.
type ConsoleRenderer struct {
	clock         history.Clock
	headingColor  *color.Color
	additionColor *color.Color
	removalColor  *color.Color
	hunkColor     *color.Color
	warningColor  *color.Color
}

// NewConsoleRenderer constructs a ConsoleRenderer. Ages are computed against clock.
func NewConsoleRenderer(colorize bool, clock history.Clock) *ConsoleRenderer {
	if clock == nil {
		clock = history.SystemClock{}
	}
	renderer := &ConsoleRenderer{
		clock:         clock,
		headingColor:  color.New(color.Bold),
		additionColor: color.New(color.FgGreen),
		removalColor:  color.New(color.FgRed),
		hunkColor:     color.New(color.FgCyan),
		warningColor:  color.New(color.FgYellow),
	}
	for _, configuredColor := range []*color.Color{renderer.headingColor, renderer.additionColor, renderer.removalColor, renderer.hunkColor, renderer.warningColor} {
		if colorize {
			configuredColor.EnableColor()
		} else {
			configuredColor.DisableColor()
		}
	}
	return renderer
}

// Render writes the console report for result.
func (renderer *ConsoleRenderer) Render(writer io.Writer, result fetch.FetchResult) error {
	reportBuilder := &strings.Builder{}

	fmt.Fprintf(reportBuilder, consoleHeadingTemplateConstant, renderer.headingColor.Sprint(repositoryDisplayName(result.RepositoryURL)))
	renderer.writeEndpoint(reportBuilder, consoleStartLabelConstant, result.StartCommit, result.StartSubstituted)
	renderer.writeEndpoint(reportBuilder, consoleEndLabelConstant, result.EndCommit, false)

	for _, warning := range result.Warnings {
		reportBuilder.WriteString(renderer.warningColor.Sprintf(consoleWarningTemplateConstant, warning.Path, warning.Side, warning.Message))
	}
	for _, skippedPath := range result.SkippedBinary {
		reportBuilder.WriteString(renderer.warningColor.Sprintf(consoleSkippedTemplateConstant, skippedPath))
	}

	if len(result.Files) == 0 {
		reportBuilder.WriteString(consoleNoChangesMessageConstant)
		_, writeError := io.WriteString(writer, reportBuilder.String())
		return writeError
	}

	reportBuilder.WriteString(consoleLineSeparatorConstant)
	reportBuilder.WriteString(renderSummaryTable(result.Files))
	reportBuilder.WriteString(consoleLineSeparatorConstant)

	for _, fileDiff := range result.Files {
		fmt.Fprintf(reportBuilder, consoleFileHeadingTemplateConstant, renderer.headingColor.Sprint(fileDiff.Path))
		renderer.writePatchBody(reportBuilder, fileDiff.PatchText)
	}

	_, writeError := io.WriteString(writer, reportBuilder.String())
	return writeError
}

func (renderer *ConsoleRenderer) writeEndpoint(builder *strings.Builder, label string, commit history.CommitRecord, substituted bool) {
	age := humanize.RelTime(commit.Time(), renderer.clock.Now(), consoleAgoLabelConstant, consoleFromNowLabelConstant)
	if substituted {
		age += consoleSubstitutedSuffixConstant
	}
	fmt.Fprintf(builder, consoleEndpointTemplateConstant, label, commit.ShortID(), commit.Time().Format(consoleTimestampLayoutConstant), age)
}

func (renderer *ConsoleRenderer) writePatchBody(builder *strings.Builder, body string) {
	for _, line := range strings.SplitAfter(body, consoleLineSeparatorConstant) {
		if len(line) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(line, consoleHunkPrefixConstant):
			builder.WriteString(renderer.hunkColor.Sprint(line))
		case strings.HasPrefix(line, consoleAdditionPrefixConstant):
			builder.WriteString(renderer.additionColor.Sprint(line))
		case strings.HasPrefix(line, consoleRemovalPrefixConstant):
			builder.WriteString(renderer.removalColor.Sprint(line))
		default:
			builder.WriteString(line)
		}
	}
}

func renderSummaryTable(files []fetch.FileDiff) string {
	summaryTable := table.NewWriter()
	summaryTable.SetStyle(table.StyleLight)
	summaryTable.AppendHeader(table.Row{consoleFileColumnConstant, consoleLanguageColumnConstant, consoleAddedColumnConstant, consoleRemovedColumnConstant})

	totalAdded := 0
	totalRemoved := 0
	for _, fileDiff := range files {
		summaryTable.AppendRow(table.Row{
			fileDiff.Path,
			fileDiff.Language,
			fmt.Sprintf(consoleAddedTemplateConstant, fileDiff.Statistics.Added),
			fmt.Sprintf(consoleRemovedTemplateConstant, fileDiff.Statistics.Removed),
		})
		totalAdded += fileDiff.Statistics.Added
		totalRemoved += fileDiff.Statistics.Removed
	}
	summaryTable.AppendFooter(table.Row{
		fmt.Sprintf(consoleTotalTemplateConstant, len(files)),
		"",
		fmt.Sprintf(consoleAddedTemplateConstant, totalAdded),
		fmt.Sprintf(consoleRemovedTemplateConstant, totalRemoved),
	})
	return summaryTable.Render() + consoleLineSeparatorConstant
}

func repositoryDisplayName(repositoryURL string) string {
	remote, parseError := gitrepo.ParseRemoteURL(repositoryURL)
	if parseError != nil {
		return repositoryURL
	}
	return remote.DisplayName()
}
