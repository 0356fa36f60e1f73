package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	gitUserPrefixConstant               = "git@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "remote url is required"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol RemoteProtocol
	Host     string
	// Path is the remote path below the host exactly as supplied, without a leading separator.
	Path       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	if strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant) {
		return parseSSHRemote(strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant))
	}
	if strings.HasPrefix(trimmedRemote, gitUserPrefixConstant) {
		return parseSSHRemote(trimmedRemote)
	}
	if strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant) {
		return parseHTTPRemote(RemoteProtocolHTTPS, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	}
	if strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant) {
		return parseHTTPRemote(RemoteProtocolHTTP, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant))
	}

	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
}

// DisplayName returns the owner/repository pair, or the host path when the remote has no owner segment.
func (remote RemoteURL) DisplayName() string {
	if len(remote.Owner) == 0 {
		return strings.TrimSuffix(remote.Path, gitSuffixConstant)
	}
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// IsHTTP reports whether the remote is reachable over HTTP or HTTPS.
func (remote RemoteURL) IsHTTP() bool {
	return remote.Protocol == RemoteProtocolHTTPS || remote.Protocol == RemoteProtocolHTTP
}

// HostPath joins the host and path without a protocol prefix.
func (remote RemoteURL) HostPath() string {
	if len(remote.Path) == 0 {
		return remote.Host
	}
	return remote.Host + pathSeparatorConstant + remote.Path
}

func parseSSHRemote(remote string) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	hostAndPath := remote[userSplitIndex+1:]
	pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	var host string
	var path string
	if pathSplitIndex == -1 {
		slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
		if slashIndex == -1 {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
		}
		host = hostAndPath[:slashIndex]
		path = hostAndPath[slashIndex+1:]
	} else {
		host = hostAndPath[:pathSplitIndex]
		path = hostAndPath[pathSplitIndex+1:]
	}
	return buildRemote(RemoteProtocolSSH, remote, host, path)
}

func parseHTTPRemote(protocol RemoteProtocol, remote string) (RemoteURL, error) {
	slashIndex := strings.Index(remote, pathSeparatorConstant)
	if slashIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return buildRemote(protocol, remote, remote[:slashIndex], remote[slashIndex+1:])
}

func buildRemote(protocol RemoteProtocol, input string, host string, path string) (RemoteURL, error) {
	trimmedPath := strings.Trim(path, pathSeparatorConstant)
	if len(host) == 0 || len(trimmedPath) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}

	remote := RemoteURL{Protocol: protocol, Host: host, Path: trimmedPath}
	segments := strings.Split(trimmedPath, pathSeparatorConstant)
	if len(segments) >= 2 {
		repository := strings.TrimSuffix(segments[len(segments)-1], gitSuffixConstant)
		if len(repository) == 0 {
			return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
		}
		remote.Owner = segments[len(segments)-2]
		remote.Repository = repository
	}
	return remote, nil
}
