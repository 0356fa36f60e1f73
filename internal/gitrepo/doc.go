// Package gitrepo parses remote repository URLs.
//
// RemoteURL captures the protocol, host, and path of a remote so that callers
// can route HTTP remotes through a relay and present a short owner/repository
// name in rendered output.
package gitrepo
