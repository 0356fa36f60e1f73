package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	diffcmd "github.com/temirov/repodiff/cmd/cli/diff"
	"github.com/temirov/repodiff/internal/server"
	"github.com/temirov/repodiff/internal/utils"
	"github.com/temirov/repodiff/internal/utils/flags"
)

const (
	applicationNameConstant                 = "repodiff"
	applicationShortDescriptionConstant     = "Diff a remote repository across a time window"
	applicationLongDescriptionConstant      = "repodiff clones a remote repository into memory and shows what changed between the commits bounding a time window, on the terminal or over HTTP."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	logFormatChoiceSubjectConstant          = "log format"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "REPODIFF"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build command: %w"
	logFieldCommandNameConstant             = "command_name"
	toolsConfigurationKeyConstant           = "tools"
	diffConfigurationKeyConstant            = toolsConfigurationKeyConstant + ".diff"
	serveConfigurationKeyConstant           = toolsConfigurationKeyConstant + ".serve"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands.
type ApplicationToolsConfiguration struct {
	Diff  diffcmd.CommandConfiguration `mapstructure:"diff"`
	Serve server.CommandConfiguration  `mapstructure:"serve"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	commandBuildError     error
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		utils.DefaultConfigurationSearchPaths(applicationNameConstant),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flags.NewChoiceSet(logFormatChoiceSubjectConstant, string(utils.LogFormatConsole), utils.SupportedLogFormats()).Usage(logFormatFlagUsageConstant),
	)

	application.registerCommands(cobraCommand)
	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	if application.commandBuildError != nil {
		return application.commandBuildError
	}

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) registerCommands(rootCommand *cobra.Command) {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	builders := []commandBuilder{
		&diffcmd.CommandBuilder{
			LoggerProvider: loggerProvider,
			ConfigurationProvider: func() diffcmd.CommandConfiguration {
				return application.configuration.Tools.Diff
			},
		},
		&diffcmd.RangesCommandBuilder{},
		&server.CommandBuilder{
			LoggerProvider: loggerProvider,
			ConfigurationProvider: func() server.CommandConfiguration {
				return application.configuration.Tools.Serve
			},
		},
	}

	for _, builder := range builders {
		subcommand, buildError := builder.Build()
		if buildError != nil {
			application.commandBuildError = fmt.Errorf(commandBuildErrorTemplateConstant, buildError)
			return
		}
		rootCommand.AddCommand(subcommand)
	}
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultConfigurationValues(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration
	application.applyLoggingOverrides(command)

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(logFieldCommandNameConstant, command.Name()),
	)
	return nil
}

// defaultConfigurationValues lists every configuration key so that environment variables can override keys absent from files.
func defaultConfigurationValues() map[string]any {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for _, commandDefaults := range []map[string]any{
		diffcmd.DefaultConfigurationValues(diffConfigurationKeyConstant),
		server.DefaultConfigurationValues(serveConfigurationKeyConstant),
	} {
		for configurationKey, configurationValue := range commandDefaults {
			defaultValues[configurationKey] = configurationValue
		}
	}
	return defaultValues
}

func (application *Application) applyLoggingOverrides(command *cobra.Command) {
	overrides := []struct {
		flagName  string
		flagValue string
		target    *string
	}{
		{flagName: logLevelFlagNameConstant, flagValue: application.logLevelFlagValue, target: &application.configuration.Common.LogLevel},
		{flagName: logFormatFlagNameConstant, flagValue: application.logFormatFlagValue, target: &application.configuration.Common.LogFormat},
	}
	for _, override := range overrides {
		if persistentFlagChanged(command, override.flagName) {
			*override.target = override.flagValue
		}
	}
}

// flushLogger syncs the logger, ignoring the errors terminals and pipes report for sync.
func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	for _, ignorableError := range []error{syscall.ENOTSUP, syscall.EINVAL, syscall.ENOTTY} {
		if errors.Is(syncError, ignorableError) {
			return nil
		}
	}
	return syncError
}

func persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	for _, flagSet := range []*pflag.FlagSet{command.Flags(), command.InheritedFlags(), command.Root().PersistentFlags()} {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
