package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/temirov/repodiff/internal/history"
)

const (
	commitLogErrorTemplateConstant      = "failed to read commit log: %w"
	headResolutionErrorTemplateConstant = "failed to resolve HEAD: %w"
	indexReadErrorTemplateConstant      = "failed to read index: %w"
	treeReadErrorTemplateConstant       = "failed to read tree: %w"
	commitLookupErrorTemplateConstant   = "failed to look up commit %s: %w"
	blobLookupErrorTemplateConstant     = "failed to read %s at %s: %w"
)

// ErrFileNotFound indicates the requested path does not exist at the requested commit.
var ErrFileNotFound = object.ErrFileNotFound

// WorkingCopy answers history and content queries against a cloned repository.
type WorkingCopy interface {
	Log(ctx context.Context, limit int) ([]history.CommitRecord, error)
	ListFiles(ctx context.Context) ([]string, error)
	ReadBlob(ctx context.Context, commitID string, path string) ([]byte, error)
}

// GitWorkingCopy implements WorkingCopy on top of a go-git repository.
type GitWorkingCopy struct {
	repository *git.Repository
	mutex      sync.Mutex
}

// NewGitWorkingCopy wraps an opened go-git repository.
func NewGitWorkingCopy(repository *git.Repository) *GitWorkingCopy {
	return &GitWorkingCopy{repository: repository}
}

// Log returns up to limit commits reachable from HEAD in the order of a newest-first committer-time walk.
// Records are not re-sorted, so author timestamps may be out of order. A non-positive limit returns every
// reachable commit. A shallow history ends at its boundary instead of failing.
func (workingCopy *GitWorkingCopy) Log(ctx context.Context, limit int) ([]history.CommitRecord, error) {
	workingCopy.mutex.Lock()
	defer workingCopy.mutex.Unlock()

	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}

	headReference, headError := workingCopy.repository.Head()
	if headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf(commitLogErrorTemplateConstant, headError)
	}
	headCommit, commitError := workingCopy.repository.CommitObject(headReference.Hash())
	if commitError != nil {
		return nil, fmt.Errorf(commitLogErrorTemplateConstant, commitError)
	}

	commitIterator := object.NewCommitIterCTime(headCommit, workingCopy.shallowBoundary(), nil)
	defer commitIterator.Close()

	commitRecords := make([]history.CommitRecord, 0)
	for limit <= 0 || len(commitRecords) < limit {
		if contextError := ctx.Err(); contextError != nil {
			return nil, contextError
		}

		commit, nextError := commitIterator.Next()
		if errors.Is(nextError, io.EOF) {
			break
		}
		if nextError != nil {
			if errors.Is(nextError, plumbing.ErrObjectNotFound) && len(commitRecords) > 0 {
				break
			}
			return nil, fmt.Errorf(commitLogErrorTemplateConstant, nextError)
		}

		commitRecords = append(commitRecords, history.CommitRecord{
			ID:               commit.Hash.String(),
			TimestampSeconds: commit.Author.When.Unix(),
		})
	}

	return commitRecords, nil
}

// shallowBoundary returns the parents of shallow commits, which a depth-limited clone never fetched.
func (workingCopy *GitWorkingCopy) shallowBoundary() map[plumbing.Hash]bool {
	boundary := make(map[plumbing.Hash]bool)
	shallowCommits, shallowError := workingCopy.repository.Storer.Shallow()
	if shallowError != nil {
		return boundary
	}
	for _, shallowHash := range shallowCommits {
		shallowCommit, commitError := workingCopy.repository.CommitObject(shallowHash)
		if commitError != nil {
			continue
		}
		for _, parentHash := range shallowCommit.ParentHashes {
			boundary[parentHash] = true
		}
	}
	return boundary
}

// ListFiles returns the paths tracked in the index in index order, falling back to the HEAD tree when the index is empty.
func (workingCopy *GitWorkingCopy) ListFiles(ctx context.Context) ([]string, error) {
	workingCopy.mutex.Lock()
	defer workingCopy.mutex.Unlock()

	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}

	repositoryIndex, indexError := workingCopy.repository.Storer.Index()
	if indexError != nil {
		return nil, fmt.Errorf(indexReadErrorTemplateConstant, indexError)
	}
	if len(repositoryIndex.Entries) > 0 {
		paths := make([]string, 0, len(repositoryIndex.Entries))
		for _, entry := range repositoryIndex.Entries {
			paths = append(paths, entry.Name)
		}
		sort.Strings(paths)
		return paths, nil
	}

	return workingCopy.listHeadTree()
}

// ReadBlob returns the content of path as of commitID.
func (workingCopy *GitWorkingCopy) ReadBlob(ctx context.Context, commitID string, path string) ([]byte, error) {
	workingCopy.mutex.Lock()
	defer workingCopy.mutex.Unlock()

	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}

	commit, commitError := workingCopy.repository.CommitObject(plumbing.NewHash(commitID))
	if commitError != nil {
		return nil, fmt.Errorf(commitLookupErrorTemplateConstant, commitID, commitError)
	}

	file, fileError := commit.File(path)
	if fileError != nil {
		return nil, fmt.Errorf(blobLookupErrorTemplateConstant, path, commitID, fileError)
	}

	reader, readerError := file.Reader()
	if readerError != nil {
		return nil, fmt.Errorf(blobLookupErrorTemplateConstant, path, commitID, readerError)
	}
	defer reader.Close()

	content, readError := io.ReadAll(reader)
	if readError != nil {
		return nil, fmt.Errorf(blobLookupErrorTemplateConstant, path, commitID, readError)
	}
	return content, nil
}

func (workingCopy *GitWorkingCopy) listHeadTree() ([]string, error) {
	headReference, headError := workingCopy.repository.Head()
	if headError != nil {
		return nil, fmt.Errorf(headResolutionErrorTemplateConstant, headError)
	}

	headCommit, commitError := workingCopy.repository.CommitObject(headReference.Hash())
	if commitError != nil {
		return nil, fmt.Errorf(commitLookupErrorTemplateConstant, headReference.Hash().String(), commitError)
	}

	fileIterator, filesError := headCommit.Files()
	if filesError != nil {
		return nil, fmt.Errorf(treeReadErrorTemplateConstant, filesError)
	}
	defer fileIterator.Close()

	paths := make([]string, 0)
	iterationError := fileIterator.ForEach(func(file *object.File) error {
		paths = append(paths, file.Name)
		return nil
	})
	if iterationError != nil {
		return nil, fmt.Errorf(treeReadErrorTemplateConstant, iterationError)
	}
	sort.Strings(paths)
	return paths, nil
}
