package diff

import (
	"strings"

	"github.com/temirov/repodiff/internal/export"
	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	repositoryKeyConstant  = "repository"
	extensionsKeyConstant  = "extensions"
	rangeKeyConstant       = "range"
	depthKeyConstant       = "depth"
	relayURLKeyConstant    = "relay_url"
	concurrencyKeyConstant = "concurrency"
	formatKeyConstant      = "format"
	outputKeyConstant      = "output"
	keySeparatorConstant   = "."

	extensionSeparatorConstant = ","
)

// CommandConfiguration captures configuration values for the diff command.
type CommandConfiguration struct {
	Repository  string   `mapstructure:"repository"`
	Extensions  []string `mapstructure:"extensions"`
	Range       string   `mapstructure:"range"`
	Depth       int      `mapstructure:"depth"`
	RelayURL    string   `mapstructure:"relay_url"`
	Concurrency int      `mapstructure:"concurrency"`
	Format      string   `mapstructure:"format"`
	Output      string   `mapstructure:"output"`
}

// DefaultCommandConfiguration provides baseline configuration values for diff.
func DefaultCommandConfiguration() CommandConfiguration {
	defaultOption, _ := history.LadderOption(history.DefaultLadderIndex)
	return CommandConfiguration{
		Repository:  "",
		Extensions:  nil,
		Range:       defaultOption.Key,
		Depth:       vcs.DefaultCloneDepth,
		RelayURL:    "",
		Concurrency: fetch.DefaultConcurrency,
		Format:      export.FormatConsole,
		Output:      "",
	}
}

// DefaultConfigurationValues produces Viper defaults for diff under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + keySeparatorConstant + repositoryKeyConstant:  defaults.Repository,
		rootKey + keySeparatorConstant + extensionsKeyConstant:  []string{},
		rootKey + keySeparatorConstant + rangeKeyConstant:       defaults.Range,
		rootKey + keySeparatorConstant + depthKeyConstant:       defaults.Depth,
		rootKey + keySeparatorConstant + relayURLKeyConstant:    defaults.RelayURL,
		rootKey + keySeparatorConstant + concurrencyKeyConstant: defaults.Concurrency,
		rootKey + keySeparatorConstant + formatKeyConstant:      defaults.Format,
		rootKey + keySeparatorConstant + outputKeyConstant:      defaults.Output,
	}
}

// sanitize trims values and restores defaults for empty or non-positive settings.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Repository = strings.TrimSpace(configuration.Repository)
	sanitized.Extensions = fetch.ParseExtensions(strings.Join(configuration.Extensions, extensionSeparatorConstant))
	sanitized.Range = strings.TrimSpace(configuration.Range)
	if len(sanitized.Range) == 0 {
		sanitized.Range = defaults.Range
	}
	if sanitized.Depth <= 0 {
		sanitized.Depth = defaults.Depth
	}
	sanitized.RelayURL = strings.TrimSpace(configuration.RelayURL)
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	sanitized.Format = strings.TrimSpace(configuration.Format)
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaults.Format
	}
	sanitized.Output = strings.TrimSpace(configuration.Output)
	return sanitized
}
