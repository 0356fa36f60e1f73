package diff

import (
	"errors"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/temirov/repodiff/internal/history"
)

const (
	rangesUseConstant                        = "ranges"
	rangesShortDescriptionConstant           = "List the selectable time windows"
	rangesLongDescriptionConstant            = "ranges prints the duration ladder accepted by diff --range, by index, key, or label."
	rangesUnexpectedArgumentsMessageConstant = "ranges does not accept positional arguments"
	rangesIndexColumnConstant                = "Index"
	rangesKeyColumnConstant                  = "Key"
	rangesLabelColumnConstant                = "Label"
	rangesDefaultColumnConstant              = "Default"
	rangesDefaultMarkerConstant              = "*"
	rangesLineTerminatorConstant             = "\n"
)

var errRangesArguments = errors.New(rangesUnexpectedArgumentsMessageConstant)

// RangesCommandBuilder assembles the ranges command.
type RangesCommandBuilder struct{}

// Build constructs the ranges command.
func (builder *RangesCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   rangesUseConstant,
		Short: rangesShortDescriptionConstant,
		Long:  rangesLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *RangesCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errRangesArguments
	}

	tableWriter := table.NewWriter()
	tableWriter.SetStyle(table.StyleLight)
	tableWriter.AppendHeader(table.Row{rangesIndexColumnConstant, rangesKeyColumnConstant, rangesLabelColumnConstant, rangesDefaultColumnConstant})
	for index, option := range history.DurationLadder() {
		defaultMarker := ""
		if index == history.DefaultLadderIndex {
			defaultMarker = rangesDefaultMarkerConstant
		}
		tableWriter.AppendRow(table.Row{strconv.Itoa(index), option.Key, option.Label, defaultMarker})
	}

	_, writeError := command.OutOrStdout().Write([]byte(tableWriter.Render() + rangesLineTerminatorConstant))
	return writeError
}
