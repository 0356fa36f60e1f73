package fetch

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/vcs"
)

const (
	tracerNameConstant              = "github.com/temirov/repodiff/internal/fetch"
	fetchSpanNameConstant           = "repodiff.fetch"
	repositoryAttributeKeyConstant  = "repodiff.repository"
	extensionsAttributeKeyConstant  = "repodiff.extensions"
	outcomeAttributeKeyConstant     = "repodiff.outcome"
	fileCountAttributeKeyConstant   = "repodiff.files"
	commitCountAttributeKeyConstant = "repodiff.commits"
	fetchCompletedMessageConstant   = "Fetched repository diff"
	fetchFailedMessageConstant      = "Repository diff fetch failed"
	repositoryFieldNameConstant     = "repository"
	startCommitFieldNameConstant    = "start_commit"
	endCommitFieldNameConstant      = "end_commit"
	fileCountFieldNameConstant      = "files"
	warningCountFieldNameConstant   = "warnings"
	outcomeFieldNameConstant        = "outcome"
	startSubstitutedMessageConstant = "No commit precedes the window start, using the oldest fetched commit"
)

// RepositoryCloner creates working copies of remote repositories.
type RepositoryCloner interface {
	Clone(ctx context.Context, options vcs.CloneOptions) (vcs.WorkingCopy, error)
}

// Dependencies supplies the collaborators of a Service.
type Dependencies struct {
	Cloner    RepositoryCloner
	Assembler *Assembler
	Logger    *zap.Logger
	Metrics   *Metrics
	Tracer    trace.Tracer
}

// Request describes one fetch.
type Request struct {
	RepositoryURL string
	Extensions    []string
	Window        history.TimeWindow
	// Depth bounds the fetched history; non-positive selects vcs.DefaultCloneDepth.
	Depth    int
	RelayURL string
	Progress vcs.ProgressObserver
}

// FetchResult is the outcome of a successful fetch.
type FetchResult struct {
	RepositoryURL    string               `json:"repository_url"`
	Window           history.TimeWindow   `json:"window"`
	StartCommit      history.CommitRecord `json:"start_commit"`
	EndCommit        history.CommitRecord `json:"end_commit"`
	StartSubstituted bool                 `json:"start_substituted"`
	Files            []FileDiff           `json:"files"`
	Warnings         []FileWarning        `json:"warnings"`
	SkippedBinary    []string             `json:"skipped_binary"`
}

// Service runs fetches one at a time.
type Service struct {
	cloner    RepositoryCloner
	assembler *Assembler
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	inFlight  atomic.Bool
}

// NewService constructs a Service. Missing collaborators are reported by Fetch as ErrServiceNotReady.
func NewService(dependencies Dependencies) *Service {
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := dependencies.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerNameConstant)
	}
	return &Service{
		cloner:    dependencies.Cloner,
		assembler: dependencies.Assembler,
		logger:    logger,
		metrics:   dependencies.Metrics,
		tracer:    tracer,
	}
}

// Busy reports whether a fetch is currently running.
func (service *Service) Busy() bool {
	return service != nil && service.inFlight.Load()
}

// Fetch clones the repository, selects the window commits, and assembles the changed files.
// No partial result is returned when any step fails.
func (service *Service) Fetch(ctx context.Context, request Request) (FetchResult, error) {
	if service == nil || service.cloner == nil || service.assembler == nil {
		return FetchResult{}, ErrServiceNotReady
	}

	startedAt := time.Now()
	spanContext, span := service.tracer.Start(ctx, fetchSpanNameConstant, trace.WithAttributes(
		attribute.String(repositoryAttributeKeyConstant, request.RepositoryURL),
		attribute.StringSlice(extensionsAttributeKeyConstant, request.Extensions),
	))
	defer span.End()

	result, fetchError := service.fetch(spanContext, span, request)
	outcome := ClassifyOutcome(fetchError)
	service.metrics.observeFetch(outcome, time.Since(startedAt), result)
	span.SetAttributes(attribute.String(outcomeAttributeKeyConstant, outcome))

	if fetchError != nil {
		span.RecordError(fetchError)
		span.SetStatus(codes.Error, fetchError.Error())
		service.logger.Debug(fetchFailedMessageConstant,
			zap.String(repositoryFieldNameConstant, request.RepositoryURL),
			zap.String(outcomeFieldNameConstant, outcome),
			zap.Error(fetchError),
		)
		return FetchResult{}, fetchError
	}

	span.SetAttributes(attribute.Int(fileCountAttributeKeyConstant, len(result.Files)))
	service.logger.Info(fetchCompletedMessageConstant,
		zap.String(repositoryFieldNameConstant, result.RepositoryURL),
		zap.String(startCommitFieldNameConstant, result.StartCommit.ShortID()),
		zap.String(endCommitFieldNameConstant, result.EndCommit.ShortID()),
		zap.Int(fileCountFieldNameConstant, len(result.Files)),
		zap.Int(warningCountFieldNameConstant, len(result.Warnings)),
	)
	return result, nil
}

func (service *Service) fetch(ctx context.Context, span trace.Span, request Request) (FetchResult, error) {
	repositoryURL := strings.TrimSpace(request.RepositoryURL)
	if len(repositoryURL) == 0 {
		return FetchResult{}, ErrRepositoryURLRequired
	}

	if !service.inFlight.CompareAndSwap(false, true) {
		return FetchResult{}, ErrFetchInProgress
	}
	defer service.inFlight.Store(false)

	depth := request.Depth
	if depth <= 0 {
		depth = vcs.DefaultCloneDepth
	}

	workingCopy, cloneError := service.cloner.Clone(ctx, vcs.CloneOptions{
		RepositoryURL: repositoryURL,
		RelayURL:      request.RelayURL,
		Depth:         depth,
		Progress:      request.Progress,
	})
	if cloneError != nil {
		if errors.Is(cloneError, vcs.ErrEmptyRepository) {
			return FetchResult{}, history.ErrEmptyHistory
		}
		return FetchResult{}, &UpstreamFetchError{Stage: StageClone, Err: cloneError}
	}

	commitHistory, logError := workingCopy.Log(ctx, depth)
	if logError != nil {
		return FetchResult{}, &UpstreamFetchError{Stage: StageLog, Err: logError}
	}
	span.SetAttributes(attribute.Int(commitCountAttributeKeyConstant, len(commitHistory)))

	selection, selectionError := history.SelectWindowCommits(commitHistory, request.Window)
	if selectionError != nil {
		return FetchResult{}, selectionError
	}
	if selection.StartSubstituted {
		service.logger.Debug(startSubstitutedMessageConstant,
			zap.String(repositoryFieldNameConstant, repositoryURL),
			zap.String(startCommitFieldNameConstant, selection.Start.ShortID()),
		)
	}

	paths, listError := workingCopy.ListFiles(ctx)
	if listError != nil {
		return FetchResult{}, &UpstreamFetchError{Stage: StageList, Err: listError}
	}

	assembly, assemblyError := service.assembler.Assemble(ctx, workingCopy, selection.Start, selection.End, paths, ExtensionFilter(request.Extensions))
	if assemblyError != nil {
		return FetchResult{}, assemblyError
	}

	return FetchResult{
		RepositoryURL:    repositoryURL,
		Window:           request.Window,
		StartCommit:      selection.Start,
		EndCommit:        selection.End,
		StartSubstituted: selection.StartSubstituted,
		Files:            assembly.Files,
		Warnings:         assembly.Warnings,
		SkippedBinary:    assembly.SkippedBinary,
	}, nil
}
