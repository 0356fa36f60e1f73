package server

import (
	"strings"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/relay"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	// DefaultListenAddress is the address served when none is configured.
	DefaultListenAddress = ":8080"

	listenAddressKeyConstant = "listen_address"
	upstreamURLKeyConstant   = "upstream_url"
	proxyPrefixKeyConstant   = "proxy_prefix"
	userAgentKeyConstant     = "user_agent"
	depthKeyConstant         = "depth"
	concurrencyKeyConstant   = "concurrency"
	keySeparatorConstant     = "."
)

// CommandConfiguration captures configuration values for the serve command.
type CommandConfiguration struct {
	ListenAddress string `mapstructure:"listen_address"`
	UpstreamURL   string `mapstructure:"upstream_url"`
	ProxyPrefix   string `mapstructure:"proxy_prefix"`
	UserAgent     string `mapstructure:"user_agent"`
	Depth         int    `mapstructure:"depth"`
	Concurrency   int    `mapstructure:"concurrency"`
}

// DefaultCommandConfiguration provides baseline configuration values for serve.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ListenAddress: DefaultListenAddress,
		UpstreamURL:   relay.DefaultUpstreamURL,
		ProxyPrefix:   relay.DefaultPrefix,
		UserAgent:     relay.DefaultUserAgent,
		Depth:         vcs.DefaultCloneDepth,
		Concurrency:   fetch.DefaultConcurrency,
	}
}

// DefaultConfigurationValues produces Viper defaults for serve under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + keySeparatorConstant + listenAddressKeyConstant: defaults.ListenAddress,
		rootKey + keySeparatorConstant + upstreamURLKeyConstant:   defaults.UpstreamURL,
		rootKey + keySeparatorConstant + proxyPrefixKeyConstant:   defaults.ProxyPrefix,
		rootKey + keySeparatorConstant + userAgentKeyConstant:     defaults.UserAgent,
		rootKey + keySeparatorConstant + depthKeyConstant:         defaults.Depth,
		rootKey + keySeparatorConstant + concurrencyKeyConstant:   defaults.Concurrency,
	}
}

// sanitize trims values and restores defaults for empty or non-positive settings.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.ListenAddress = strings.TrimSpace(configuration.ListenAddress)
	if len(sanitized.ListenAddress) == 0 {
		sanitized.ListenAddress = defaults.ListenAddress
	}
	sanitized.UpstreamURL = strings.TrimSpace(configuration.UpstreamURL)
	if len(sanitized.UpstreamURL) == 0 {
		sanitized.UpstreamURL = defaults.UpstreamURL
	}
	sanitized.ProxyPrefix = relay.NormalizePrefix(configuration.ProxyPrefix)
	sanitized.UserAgent = strings.TrimSpace(configuration.UserAgent)
	if len(sanitized.UserAgent) == 0 {
		sanitized.UserAgent = defaults.UserAgent
	}
	if sanitized.Depth <= 0 {
		sanitized.Depth = defaults.Depth
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	return sanitized
}
