package diff

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/export"
	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/patch"
	"github.com/temirov/repodiff/internal/share"
	"github.com/temirov/repodiff/internal/ui"
	"github.com/temirov/repodiff/internal/utils/flags"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	commandUseConstant                    = "diff [repository-url]"
	commandShortDescriptionConstant       = "Show what changed in a remote repository within a time window"
	commandLongDescriptionConstant        = "diff clones a remote repository into memory, picks the commits bounding the selected time window, and prints a unified diff of the changed files."
	commandExecutionErrorTemplateConstant = "diff failed: %w"
	shareDecodeErrorTemplateConstant      = "invalid share query: %w"
	outputCreateErrorTemplateConstant     = "unable to create output file: %w"
	outputCloseErrorTemplateConstant      = "unable to close output file: %w"
	shareOutputTemplateConstant           = "?%s\n"
	formatChoiceSubjectConstant           = "output format"
	rangeChoiceSubjectConstant            = "range"
	flagRepositoryNameConstant            = "repository"
	flagRepositoryShorthandConstant       = "r"
	flagRepositoryDescriptionConstant     = "Remote repository URL"
	flagExtensionsNameConstant            = "extensions"
	flagExtensionsShorthandConstant       = "e"
	flagExtensionsDescriptionConstant     = "File extensions to include, comma-separated (all files when empty)"
	flagRangeNameConstant                 = "range"
	flagRangeDescriptionConstant          = "Time window ending now"
	flagDepthNameConstant                 = "depth"
	flagDepthDescriptionConstant          = "Number of commits to fetch"
	flagRelayURLNameConstant              = "relay-url"
	flagRelayURLDescriptionConstant       = "CORS relay base URL to clone through"
	flagConcurrencyNameConstant           = "concurrency"
	flagConcurrencyDescriptionConstant    = "Maximum concurrent file reads"
	flagFormatNameConstant                = "format"
	flagFormatShorthandConstant           = "f"
	flagFormatDescriptionConstant         = "Output format"
	flagOutputNameConstant                = "output"
	flagOutputShorthandConstant           = "o"
	flagOutputDescriptionConstant         = "Write the rendered diff to this file instead of standard output"
	flagShareNameConstant                 = "share"
	flagShareDescriptionConstant          = "Share query (repo, ext, start, end) to reproduce a previous diff"
	flagPrintShareNameConstant            = "print-share"
	flagPrintShareDescriptionConstant     = "Print the share query for this diff to standard error"
	flagNoColorNameConstant               = "no-color"
	flagNoColorDescriptionConstant        = "Disable colored console output"
)

// CommandBuilder assembles the diff command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Cloner                fetch.RepositoryCloner
	Clock                 history.Clock
}

// Build constructs the diff command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	ladderKeys := make([]string, 0)
	for _, option := range history.DurationLadder() {
		ladderKeys = append(ladderKeys, option.Key)
	}
	rangeChoices := flags.NewChoiceSet(rangeChoiceSubjectConstant, defaults.Range, ladderKeys)

	command.Flags().StringP(flagRepositoryNameConstant, flagRepositoryShorthandConstant, "", flagRepositoryDescriptionConstant)
	command.Flags().StringSliceP(flagExtensionsNameConstant, flagExtensionsShorthandConstant, nil, flagExtensionsDescriptionConstant)
	command.Flags().String(flagRangeNameConstant, defaults.Range, rangeChoices.Usage(flagRangeDescriptionConstant))
	command.Flags().Int(flagDepthNameConstant, defaults.Depth, flagDepthDescriptionConstant)
	command.Flags().String(flagRelayURLNameConstant, "", flagRelayURLDescriptionConstant)
	command.Flags().Int(flagConcurrencyNameConstant, defaults.Concurrency, flagConcurrencyDescriptionConstant)
	command.Flags().StringP(flagFormatNameConstant, flagFormatShorthandConstant, defaults.Format, formatChoices(defaults.Format).Usage(flagFormatDescriptionConstant))
	command.Flags().StringP(flagOutputNameConstant, flagOutputShorthandConstant, "", flagOutputDescriptionConstant)
	command.Flags().String(flagShareNameConstant, "", flagShareDescriptionConstant)
	command.Flags().Bool(flagPrintShareNameConstant, false, flagPrintShareDescriptionConstant)
	command.Flags().Bool(flagNoColorNameConstant, false, flagNoColorDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) (runError error) {
	configuration := builder.resolveConfiguration(command, arguments)
	clock := resolveClock(builder.Clock)
	logger := resolveLogger(builder.LoggerProvider)

	format, formatError := formatChoices(export.FormatConsole).Resolve(configuration.Format)
	if formatError != nil {
		return formatError
	}

	parameters, parametersError := builder.resolveParameters(command, arguments, configuration, clock)
	if parametersError != nil {
		return parametersError
	}

	service, serviceError := builder.buildService(configuration, logger)
	if serviceError != nil {
		return serviceError
	}

	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	progressLogger := ui.NewConsoleProgressLogger(logger)
	progressLogger.FetchStarted(parameters.RepositoryURL)
	result, fetchError := service.Fetch(ctx, fetch.Request{
		RepositoryURL: parameters.RepositoryURL,
		Extensions:    parameters.Extensions,
		Window:        parameters.Window(),
		Depth:         configuration.Depth,
		RelayURL:      configuration.RelayURL,
		Progress:      progressLogger,
	})
	if fetchError != nil {
		progressLogger.FetchFailed(parameters.RepositoryURL, fetchError)
		return fmt.Errorf(commandExecutionErrorTemplateConstant, fetchError)
	}
	progressLogger.FetchCompleted(len(result.Files), result.StartCommit.ShortID(), result.EndCommit.ShortID())

	writer := command.OutOrStdout()
	writingToStandardOutput := len(configuration.Output) == 0
	if !writingToStandardOutput {
		outputFile, createError := os.Create(configuration.Output)
		if createError != nil {
			return fmt.Errorf(outputCreateErrorTemplateConstant, createError)
		}
		defer func() {
			if closeError := outputFile.Close(); closeError != nil && runError == nil {
				runError = fmt.Errorf(outputCloseErrorTemplateConstant, closeError)
			}
		}()
		writer = outputFile
	}

	noColor, _ := command.Flags().GetBool(flagNoColorNameConstant)
	renderer, rendererError := export.NewRenderer(format, export.RendererOptions{
		Colorize: writingToStandardOutput && !noColor && !color.NoColor,
		Clock:    clock,
	})
	if rendererError != nil {
		return rendererError
	}
	if renderError := renderer.Render(writer, result); renderError != nil {
		return renderError
	}

	printShare, _ := command.Flags().GetBool(flagPrintShareNameConstant)
	if printShare {
		encodedQuery := share.Encode(share.Configuration{
			RepositoryURL: result.RepositoryURL,
			Extensions:    parameters.Extensions,
			Start:         result.Window.Start,
			End:           result.Window.End,
		})
		if _, writeError := fmt.Fprintf(command.ErrOrStderr(), shareOutputTemplateConstant, encodedQuery); writeError != nil {
			return writeError
		}
	}

	return nil
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command, arguments []string) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(flagRepositoryNameConstant) {
		configuration.Repository, _ = commandFlags.GetString(flagRepositoryNameConstant)
	}
	if len(arguments) > 0 {
		configuration.Repository = arguments[0]
	}
	if commandFlags.Changed(flagExtensionsNameConstant) {
		configuration.Extensions, _ = commandFlags.GetStringSlice(flagExtensionsNameConstant)
	}
	if commandFlags.Changed(flagRangeNameConstant) {
		configuration.Range, _ = commandFlags.GetString(flagRangeNameConstant)
	}
	if commandFlags.Changed(flagDepthNameConstant) {
		configuration.Depth, _ = commandFlags.GetInt(flagDepthNameConstant)
	}
	if commandFlags.Changed(flagRelayURLNameConstant) {
		configuration.RelayURL, _ = commandFlags.GetString(flagRelayURLNameConstant)
	}
	if commandFlags.Changed(flagConcurrencyNameConstant) {
		configuration.Concurrency, _ = commandFlags.GetInt(flagConcurrencyNameConstant)
	}
	if commandFlags.Changed(flagFormatNameConstant) {
		configuration.Format, _ = commandFlags.GetString(flagFormatNameConstant)
	}
	if commandFlags.Changed(flagOutputNameConstant) {
		configuration.Output, _ = commandFlags.GetString(flagOutputNameConstant)
	}

	return configuration.sanitize()
}

// resolveParameters picks the repository, extensions, and window. A share query supplies all three;
// an explicit repository or extension flag still wins over the query. An empty ext in the query
// means every file and is not replaced by configured extensions.
func (builder *CommandBuilder) resolveParameters(command *cobra.Command, arguments []string, configuration CommandConfiguration, clock history.Clock) (share.Configuration, error) {
	shareText, _ := command.Flags().GetString(flagShareNameConstant)
	if len(strings.TrimSpace(shareText)) > 0 {
		decoded, decodeError := share.Decode(shareText, clock)
		if decodeError != nil {
			return share.Configuration{}, fmt.Errorf(shareDecodeErrorTemplateConstant, decodeError)
		}
		if command.Flags().Changed(flagRepositoryNameConstant) || len(arguments) > 0 || len(decoded.RepositoryURL) == 0 {
			decoded.RepositoryURL = configuration.Repository
		}
		if command.Flags().Changed(flagExtensionsNameConstant) || !decoded.ExtensionsSpecified {
			decoded.Extensions = configuration.Extensions
		}
		return decoded, nil
	}

	ladderIndex, selectionError := history.ParseLadderSelection(configuration.Range)
	if selectionError != nil {
		return share.Configuration{}, selectionError
	}
	window, windowError := history.WindowForLadderIndex(clock.Now(), ladderIndex)
	if windowError != nil {
		return share.Configuration{}, windowError
	}
	return share.Configuration{
		RepositoryURL: configuration.Repository,
		Extensions:    configuration.Extensions,
		Start:         window.Start,
		End:           window.End,
		LadderIndex:   ladderIndex,
	}, nil
}

func (builder *CommandBuilder) buildService(configuration CommandConfiguration, logger *zap.Logger) (*fetch.Service, error) {
	assembler, assemblerError := fetch.NewAssembler(patch.NewUnifiedGenerator(), logger, configuration.Concurrency)
	if assemblerError != nil {
		return nil, assemblerError
	}

	var cloner fetch.RepositoryCloner = vcs.NewClient(logger)
	if builder.Cloner != nil {
		cloner = builder.Cloner
	}

	return fetch.NewService(fetch.Dependencies{
		Cloner:    cloner,
		Assembler: assembler,
		Logger:    logger,
	}), nil
}
