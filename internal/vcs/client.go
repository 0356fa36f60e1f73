package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/gitrepo"
)

const (
	// DefaultCloneDepth bounds the history fetched by a clone when no depth is requested.
	DefaultCloneDepth = 1000

	cloneErrorTemplateConstant       = "failed to clone %s: %w"
	relayURLErrorTemplateConstant    = "cannot relay %s: %w"
	relaySeparatorConstant           = "/"
	cloneStartedMessageConstant      = "Cloning repository"
	cloneCompletedMessageConstant    = "Cloned repository"
	repositoryFieldNameConstant      = "repository"
	cloneURLFieldNameConstant        = "clone_url"
	depthFieldNameConstant           = "depth"
	emptyRepositoryMessageConstant   = "remote repository is empty"
	relayRequiresHTTPMessageConstant = "relay requires an http or https remote"
)

// ErrEmptyRepository indicates the remote has no commits to clone.
var ErrEmptyRepository = errors.New(emptyRepositoryMessageConstant)

// ErrRelayRequiresHTTP indicates a relay was configured for a remote that is not served over HTTP.
var ErrRelayRequiresHTTP = errors.New(relayRequiresHTTPMessageConstant)

// CloneOptions configures a single clone.
type CloneOptions struct {
	RepositoryURL string
	// RelayURL routes the clone through a CORS relay when non-empty.
	RelayURL string
	Depth    int
	Progress ProgressObserver
}

type cloneFunction func(ctx context.Context, storer storage.Storer, worktree billy.Filesystem, options *git.CloneOptions) (*git.Repository, error)

// Client clones remote repositories into fresh in-memory working copies.
type Client struct {
	logger *zap.Logger
	clone  cloneFunction
}

// NewClient constructs a Client that logs clone activity through logger.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, clone: git.CloneContext}
}

// Clone fetches a single branch of the remote into new memory-backed storage.
func (client *Client) Clone(ctx context.Context, options CloneOptions) (WorkingCopy, error) {
	cloneURL := strings.TrimSpace(options.RepositoryURL)
	if len(strings.TrimSpace(options.RelayURL)) > 0 {
		relayedURL, relayError := RelayedURL(options.RelayURL, cloneURL)
		if relayError != nil {
			return nil, relayError
		}
		cloneURL = relayedURL
	}

	depth := options.Depth
	if depth <= 0 {
		depth = DefaultCloneDepth
	}

	gitOptions := &git.CloneOptions{
		URL:          cloneURL,
		SingleBranch: true,
		Depth:        depth,
		Tags:         git.NoTags,
	}
	if options.Progress != nil {
		gitOptions.Progress = newProgressWriter(options.Progress)
	}

	client.logger.Debug(cloneStartedMessageConstant,
		zap.String(repositoryFieldNameConstant, options.RepositoryURL),
		zap.String(cloneURLFieldNameConstant, cloneURL),
		zap.Int(depthFieldNameConstant, depth),
	)

	repository, cloneError := client.clone(ctx, memory.NewStorage(), memfs.New(), gitOptions)
	if cloneError != nil {
		if errors.Is(cloneError, transport.ErrEmptyRemoteRepository) {
			return nil, ErrEmptyRepository
		}
		return nil, fmt.Errorf(cloneErrorTemplateConstant, options.RepositoryURL, cloneError)
	}

	client.logger.Debug(cloneCompletedMessageConstant, zap.String(repositoryFieldNameConstant, options.RepositoryURL))
	return NewGitWorkingCopy(repository), nil
}

// RelayedURL rewrites an HTTP remote into the relay form <relay>/<host>/<path>.
func RelayedURL(relayBaseURL string, repositoryURL string) (string, error) {
	remote, parseError := gitrepo.ParseRemoteURL(repositoryURL)
	if parseError != nil {
		return "", fmt.Errorf(relayURLErrorTemplateConstant, repositoryURL, parseError)
	}
	if !remote.IsHTTP() {
		return "", fmt.Errorf(relayURLErrorTemplateConstant, repositoryURL, ErrRelayRequiresHTTP)
	}
	return strings.TrimRight(strings.TrimSpace(relayBaseURL), relaySeparatorConstant) + relaySeparatorConstant + remote.HostPath(), nil
}
