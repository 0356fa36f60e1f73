package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/patch"
	"github.com/temirov/repodiff/internal/relay"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	commandUseConstant                    = "serve"
	commandShortDescriptionConstant       = "Serve the diff API and CORS relay"
	commandLongDescriptionConstant        = "serve hosts the diff API, the markdown export, the CORS relay for browser git clients, and Prometheus metrics."
	commandExecutionErrorTemplateConstant = "serve failed: %w"
	unexpectedArgumentsMessageConstant    = "serve does not accept positional arguments"
	flagListenAddressNameConstant         = "listen-address"
	flagListenAddressDescriptionConstant  = "Address the HTTP server listens on"
	flagUpstreamURLNameConstant           = "upstream-url"
	flagUpstreamURLDescriptionConstant    = "Upstream host the relay forwards to"
	flagProxyPrefixNameConstant           = "proxy-prefix"
	flagProxyPrefixDescriptionConstant    = "Path prefix served by the relay"
	flagUserAgentNameConstant             = "user-agent"
	flagUserAgentDescriptionConstant      = "User agent presented to the upstream"
	flagDepthNameConstant                 = "depth"
	flagDepthDescriptionConstant          = "Number of commits fetched per diff request"
	flagConcurrencyNameConstant           = "concurrency"
	flagConcurrencyDescriptionConstant    = "Maximum concurrent file reads per diff request"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current serve configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the serve command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Cloner                fetch.RepositoryCloner
	Clock                 history.Clock
}

// Build constructs the serve command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagListenAddressNameConstant, defaults.ListenAddress, flagListenAddressDescriptionConstant)
	command.Flags().String(flagUpstreamURLNameConstant, defaults.UpstreamURL, flagUpstreamURLDescriptionConstant)
	command.Flags().String(flagProxyPrefixNameConstant, defaults.ProxyPrefix, flagProxyPrefixDescriptionConstant)
	command.Flags().String(flagUserAgentNameConstant, defaults.UserAgent, flagUserAgentDescriptionConstant)
	command.Flags().Int(flagDepthNameConstant, defaults.Depth, flagDepthDescriptionConstant)
	command.Flags().Int(flagConcurrencyNameConstant, defaults.Concurrency, flagConcurrencyDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration(command)
	logger := builder.resolveLogger()

	handler, handlerError := builder.buildHandler(configuration, logger)
	if handlerError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, handlerError)
	}

	parentContext := command.Context()
	if parentContext == nil {
		parentContext = context.Background()
	}
	signalContext, stop := signal.NotifyContext(parentContext, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runError := NewServer(configuration.ListenAddress, handler, logger).Run(signalContext); runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) buildHandler(configuration CommandConfiguration, logger *zap.Logger) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if registerError := registry.Register(collectors.NewGoCollector()); registerError != nil {
		return nil, registerError
	}

	fetchMetrics, fetchMetricsError := fetch.NewMetrics(registry)
	if fetchMetricsError != nil {
		return nil, fetchMetricsError
	}
	relayMetrics, relayMetricsError := relay.NewMetrics(registry)
	if relayMetricsError != nil {
		return nil, relayMetricsError
	}

	relayHandler, relayError := relay.NewHandler(relay.Options{
		UpstreamURL: configuration.UpstreamURL,
		Prefix:      configuration.ProxyPrefix,
		UserAgent:   configuration.UserAgent,
		Logger:      logger,
		Metrics:     relayMetrics,
	})
	if relayError != nil {
		return nil, relayError
	}

	assembler, assemblerError := fetch.NewAssembler(patch.NewUnifiedGenerator(), logger, configuration.Concurrency)
	if assemblerError != nil {
		return nil, assemblerError
	}

	var cloner fetch.RepositoryCloner = vcs.NewClient(logger)
	if builder.Cloner != nil {
		cloner = builder.Cloner
	}

	service := fetch.NewService(fetch.Dependencies{
		Cloner:    cloner,
		Assembler: assembler,
		Logger:    logger,
		Metrics:   fetchMetrics,
	})

	return NewHandler(HandlerOptions{
		Fetcher:  service,
		Relay:    relayHandler,
		Gatherer: registry,
		Clock:    builder.Clock,
		Depth:    configuration.Depth,
		Logger:   logger,
	})
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	flags := command.Flags()
	if flags.Changed(flagListenAddressNameConstant) {
		configuration.ListenAddress, _ = flags.GetString(flagListenAddressNameConstant)
	}
	if flags.Changed(flagUpstreamURLNameConstant) {
		configuration.UpstreamURL, _ = flags.GetString(flagUpstreamURLNameConstant)
	}
	if flags.Changed(flagProxyPrefixNameConstant) {
		configuration.ProxyPrefix, _ = flags.GetString(flagProxyPrefixNameConstant)
	}
	if flags.Changed(flagUserAgentNameConstant) {
		configuration.UserAgent, _ = flags.GetString(flagUserAgentNameConstant)
	}
	if flags.Changed(flagDepthNameConstant) {
		configuration.Depth, _ = flags.GetInt(flagDepthNameConstant)
	}
	if flags.Changed(flagConcurrencyNameConstant) {
		configuration.Concurrency, _ = flags.GetInt(flagConcurrencyNameConstant)
	}

	return configuration.sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}
