package fetch

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/src-d/enry/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/patch"
)

const (
	// DefaultConcurrency bounds the number of files assembled at once.
	DefaultConcurrency = 4

	fileReadWarningMessageConstant   = "Failed to read file, substituting empty content"
	binaryFileSkippedMessageConstant = "Skipping binary file"
	pathFieldNameConstant            = "path"
	sideFieldNameConstant            = "side"
	commitFieldNameConstant          = "commit"
	missingGeneratorMessageConstant  = "patch generator is required"
)

// ErrGeneratorRequired indicates an Assembler was constructed without a patch generator.
var ErrGeneratorRequired = errors.New(missingGeneratorMessageConstant)

// BlobReader reads file content at a commit.
type BlobReader interface {
	ReadBlob(ctx context.Context, commitID string, path string) ([]byte, error)
}

// FileDiff is the patch of one file between the two window commits.
type FileDiff struct {
	Path       string               `json:"path"`
	Language   string               `json:"language,omitempty"`
	Header     string               `json:"header"`
	PatchText  string               `json:"patch"`
	Statistics patch.LineStatistics `json:"statistics"`
}

// AssemblyResult collects the files with changes plus the recovered problems met on the way.
type AssemblyResult struct {
	Files         []FileDiff
	Warnings      []FileWarning
	SkippedBinary []string
}

type fileOutcome struct {
	fileDiff *FileDiff
	warnings []FileWarning
	binary   bool
}

// Assembler builds per-file patches between two commits.
type Assembler struct {
	generator   patch.Generator
	logger      *zap.Logger
	concurrency int
}

// NewAssembler constructs an Assembler. A non-positive concurrency selects DefaultConcurrency.
func NewAssembler(generator patch.Generator, logger *zap.Logger, concurrency int) (*Assembler, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Assembler{generator: generator, logger: logger, concurrency: concurrency}, nil
}

// Assemble produces the patches for every path accepted by filter, in path order.
// Files whose patch neither adds nor removes lines are omitted. A failed read is
// recorded as a warning and treated as empty content; only cancellation of ctx aborts.
func (assembler *Assembler) Assemble(ctx context.Context, reader BlobReader, startCommit history.CommitRecord, endCommit history.CommitRecord, paths []string, filter ExtensionFilter) (AssemblyResult, error) {
	candidatePaths := filter.Select(paths)
	outcomes := make([]fileOutcome, len(candidatePaths))

	workerGroup, groupContext := errgroup.WithContext(ctx)
	workerGroup.SetLimit(assembler.concurrency)
	for candidateIndex, candidatePath := range candidatePaths {
		workerGroup.Go(func() error {
			outcome, outcomeError := assembler.assembleFile(groupContext, reader, startCommit, endCommit, candidatePath)
			if outcomeError != nil {
				return outcomeError
			}
			outcomes[candidateIndex] = outcome
			return nil
		})
	}
	if waitError := workerGroup.Wait(); waitError != nil {
		return AssemblyResult{}, waitError
	}
	if contextError := ctx.Err(); contextError != nil {
		return AssemblyResult{}, contextError
	}

	result := AssemblyResult{
		Files:         make([]FileDiff, 0),
		Warnings:      make([]FileWarning, 0),
		SkippedBinary: make([]string, 0),
	}
	for candidateIndex, outcome := range outcomes {
		result.Warnings = append(result.Warnings, outcome.warnings...)
		if outcome.binary {
			result.SkippedBinary = append(result.SkippedBinary, candidatePaths[candidateIndex])
			continue
		}
		if outcome.fileDiff != nil {
			result.Files = append(result.Files, *outcome.fileDiff)
		}
	}
	return result, nil
}

func (assembler *Assembler) assembleFile(ctx context.Context, reader BlobReader, startCommit history.CommitRecord, endCommit history.CommitRecord, path string) (fileOutcome, error) {
	outcome := fileOutcome{}

	oldContent, oldWarning, oldError := assembler.readSide(ctx, reader, startCommit, path, SideStart)
	if oldError != nil {
		return fileOutcome{}, oldError
	}
	if oldWarning != nil {
		outcome.warnings = append(outcome.warnings, *oldWarning)
	}

	newContent, newWarning, newError := assembler.readSide(ctx, reader, endCommit, path, SideEnd)
	if newError != nil {
		return fileOutcome{}, newError
	}
	if newWarning != nil {
		outcome.warnings = append(outcome.warnings, *newWarning)
	}

	if enry.IsBinary(oldContent) || enry.IsBinary(newContent) {
		assembler.logger.Debug(binaryFileSkippedMessageConstant, zap.String(pathFieldNameConstant, path))
		outcome.binary = true
		return outcome, nil
	}

	patchText, patchError := assembler.generator.CreatePatch(path, string(oldContent), string(newContent), startCommit.TimestampLabel(), endCommit.TimestampLabel())
	if patchError != nil {
		return fileOutcome{}, patchError
	}

	body := patch.StripHeader(patchText, assembler.generator.HeaderLineCount())
	if !patch.HasChanges(body) {
		return outcome, nil
	}

	outcome.fileDiff = &FileDiff{
		Path:       path,
		Language:   enry.GetLanguage(filepath.Base(path), newContent),
		Header:     patchText[:len(patchText)-len(body)],
		PatchText:  body,
		Statistics: patch.ComputeLineStatistics(string(oldContent), string(newContent)),
	}
	return outcome, nil
}

// readSide returns the content of path at commit, or empty content plus a warning when the read fails.
// Only context cancellation is returned as an error.
func (assembler *Assembler) readSide(ctx context.Context, reader BlobReader, commit history.CommitRecord, path string, side string) ([]byte, *FileWarning, error) {
	if contextError := ctx.Err(); contextError != nil {
		return nil, nil, contextError
	}

	content, readError := reader.ReadBlob(ctx, commit.ID, path)
	if readError == nil {
		return content, nil, nil
	}
	if contextError := ctx.Err(); contextError != nil {
		return nil, nil, contextError
	}

	assembler.logger.Warn(fileReadWarningMessageConstant,
		zap.String(pathFieldNameConstant, path),
		zap.String(sideFieldNameConstant, side),
		zap.String(commitFieldNameConstant, commit.ID),
		zap.Error(readError),
	)
	return nil, &FileWarning{Path: path, Side: side, Message: readError.Error()}, nil
}
