package fetch_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/vcs"
)

const testRepositoryURLConstant = "https://example.com/r.git"

type stubWorkingCopy struct {
	stubBlobReader
	commits   []history.CommitRecord
	paths     []string
	logError  error
	listError error
}

func (workingCopy stubWorkingCopy) Log(ctx context.Context, limit int) ([]history.CommitRecord, error) {
	return workingCopy.commits, workingCopy.logError
}

func (workingCopy stubWorkingCopy) ListFiles(ctx context.Context) ([]string, error) {
	return workingCopy.paths, workingCopy.listError
}

type stubCloner struct {
	workingCopy vcs.WorkingCopy
	cloneError  error
	calls       int
	options     vcs.CloneOptions
	onClone     func()
}

func (cloner *stubCloner) Clone(ctx context.Context, options vcs.CloneOptions) (vcs.WorkingCopy, error) {
	cloner.calls++
	cloner.options = options
	if cloner.onClone != nil {
		cloner.onClone()
	}
	if cloner.cloneError != nil {
		return nil, cloner.cloneError
	}
	return cloner.workingCopy, nil
}

func sampleWorkingCopy() stubWorkingCopy {
	return stubWorkingCopy{
		stubBlobReader: stubBlobReader{contents: map[string]string{
			blobKey(testStartCommitIDConstant, "app.js"):  "let a = 1;\n",
			blobKey(testEndCommitIDConstant, "app.js"):    "let a = 2;\n",
			blobKey(testStartCommitIDConstant, "app.jsx"): "old\n",
			blobKey(testEndCommitIDConstant, "app.jsx"):   "new\n",
		}},
		commits: []history.CommitRecord{testEndCommit, testStartCommit},
		paths:   []string{"app.js", "app.jsx"},
	}
}

func sampleWindow() history.TimeWindow {
	return history.TimeWindow{Start: testStartCommit.Time().Add(time.Hour), End: testEndCommit.Time().Add(time.Hour)}
}

func newTestService(testInstance *testing.T, cloner fetch.RepositoryCloner) *fetch.Service {
	testInstance.Helper()
	return fetch.NewService(fetch.Dependencies{
		Cloner:    cloner,
		Assembler: newTestAssembler(testInstance, zap.NewNop(), 0),
	})
}

func TestServiceFetchAssemblesWindow(testInstance *testing.T) {
	cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
	service := newTestService(testInstance, cloner)

	result, fetchError := service.Fetch(context.Background(), fetch.Request{
		RepositoryURL: " " + testRepositoryURLConstant + " ",
		Extensions:    []string{".js"},
		Window:        sampleWindow(),
		RelayURL:      "http://relay",
	})
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, testRepositoryURLConstant, result.RepositoryURL)
	require.Equal(testInstance, testStartCommit, result.StartCommit)
	require.Equal(testInstance, testEndCommit, result.EndCommit)
	require.Equal(testInstance, []string{"app.js"}, resultPaths(result.Files))
	require.False(testInstance, result.StartSubstituted)

	require.Equal(testInstance, testRepositoryURLConstant, cloner.options.RepositoryURL)
	require.Equal(testInstance, "http://relay", cloner.options.RelayURL)
	require.Equal(testInstance, vcs.DefaultCloneDepth, cloner.options.Depth)
	require.False(testInstance, service.Busy())
}

func TestServiceFetchErrors(testInstance *testing.T) {
	cloneFailure := errors.New("dial tcp: connection refused")
	logFailure := errors.New("corrupt pack")
	listFailure := errors.New("index unavailable")

	testCases := []struct {
		name          string
		service       func(testInstance *testing.T) (*fetch.Service, *stubCloner)
		request       fetch.Request
		expectedError error
		expectedStage string
		expectClone   bool
	}{
		{
			name: "missing_url",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: "   ", Window: sampleWindow()},
			expectedError: fetch.ErrRepositoryURLRequired,
		},
		{
			name: "not_ready",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
				return fetch.NewService(fetch.Dependencies{Cloner: cloner}), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: fetch.ErrServiceNotReady,
		},
		{
			name: "clone_failure",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				cloner := &stubCloner{cloneError: cloneFailure}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: cloneFailure,
			expectedStage: fetch.StageClone,
			expectClone:   true,
		},
		{
			name: "empty_remote",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				cloner := &stubCloner{cloneError: vcs.ErrEmptyRepository}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: history.ErrEmptyHistory,
			expectClone:   true,
		},
		{
			name: "log_failure",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				workingCopy := sampleWorkingCopy()
				workingCopy.logError = logFailure
				cloner := &stubCloner{workingCopy: workingCopy}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: logFailure,
			expectedStage: fetch.StageLog,
			expectClone:   true,
		},
		{
			name: "empty_log",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				workingCopy := sampleWorkingCopy()
				workingCopy.commits = nil
				cloner := &stubCloner{workingCopy: workingCopy}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: history.ErrEmptyHistory,
			expectClone:   true,
		},
		{
			name: "list_failure",
			service: func(testInstance *testing.T) (*fetch.Service, *stubCloner) {
				workingCopy := sampleWorkingCopy()
				workingCopy.listError = listFailure
				cloner := &stubCloner{workingCopy: workingCopy}
				return newTestService(testInstance, cloner), cloner
			},
			request:       fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()},
			expectedError: listFailure,
			expectedStage: fetch.StageList,
			expectClone:   true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, cloner := testCase.service(testInstance)
			result, fetchError := service.Fetch(context.Background(), testCase.request)
			require.ErrorIs(testInstance, fetchError, testCase.expectedError)
			require.Equal(testInstance, fetch.FetchResult{}, result)
			require.Equal(testInstance, testCase.expectClone, cloner.calls > 0)
			require.False(testInstance, service.Busy())

			var upstreamError *fetch.UpstreamFetchError
			if len(testCase.expectedStage) == 0 {
				require.False(testInstance, errors.As(fetchError, &upstreamError))
				return
			}
			require.ErrorAs(testInstance, fetchError, &upstreamError)
			require.Equal(testInstance, testCase.expectedStage, upstreamError.Stage)
			require.Contains(testInstance, upstreamError.Error(), testCase.expectedError.Error())
		})
	}
}

func TestServiceFetchRejectsOverlappingFetch(testInstance *testing.T) {
	cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
	service := newTestService(testInstance, cloner)

	var nestedError error
	cloner.onClone = func() {
		require.True(testInstance, service.Busy())
		_, nestedError = service.Fetch(context.Background(), fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()})
	}

	_, fetchError := service.Fetch(context.Background(), fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()})
	require.NoError(testInstance, fetchError)
	require.ErrorIs(testInstance, nestedError, fetch.ErrFetchInProgress)
	require.Equal(testInstance, 1, cloner.calls)
	require.False(testInstance, service.Busy())
}

func TestServiceFetchSubstitutesOldestCommit(testInstance *testing.T) {
	cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
	service := newTestService(testInstance, cloner)

	window := history.TimeWindow{Start: testStartCommit.Time().Add(-time.Hour), End: testEndCommit.Time()}
	result, fetchError := service.Fetch(context.Background(), fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: window})
	require.NoError(testInstance, fetchError)
	require.True(testInstance, result.StartSubstituted)
	require.Equal(testInstance, testStartCommit, result.StartCommit)
	require.Equal(testInstance, []string{"app.js", "app.jsx"}, resultPaths(result.Files))
}

func TestServiceFetchRecordsTelemetry(testInstance *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	testInstance.Cleanup(func() { require.NoError(testInstance, tracerProvider.Shutdown(context.Background())) })

	registry := prometheus.NewRegistry()
	metrics, metricsError := fetch.NewMetrics(registry)
	require.NoError(testInstance, metricsError)

	cloner := &stubCloner{workingCopy: sampleWorkingCopy()}
	service := fetch.NewService(fetch.Dependencies{
		Cloner:    cloner,
		Assembler: newTestAssembler(testInstance, nil, 0),
		Metrics:   metrics,
		Tracer:    tracerProvider.Tracer("test"),
	})

	_, successError := service.Fetch(context.Background(), fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()})
	require.NoError(testInstance, successError)

	cloner.cloneError = errors.New("unreachable")
	_, failureError := service.Fetch(context.Background(), fetch.Request{RepositoryURL: testRepositoryURLConstant, Window: sampleWindow()})
	require.Error(testInstance, failureError)

	spans := exporter.GetSpans()
	require.Len(testInstance, spans, 2)
	require.Equal(testInstance, "repodiff.fetch", spans[0].Name)
	require.Equal(testInstance, "Error", spans[1].Status.Code.String())

	require.NoError(testInstance, testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP repodiff_files_assembled_total Files with changes returned by successful fetches.
# TYPE repodiff_files_assembled_total counter
repodiff_files_assembled_total 2
`), "repodiff_files_assembled_total"))
	seriesCount, gatherError := testutil.GatherAndCount(registry, "repodiff_fetch_duration_seconds")
	require.NoError(testInstance, gatherError)
	require.Equal(testInstance, 2, seriesCount)
}

func TestClassifyOutcome(testInstance *testing.T) {
	require.Equal(testInstance, fetch.OutcomeSuccess, fetch.ClassifyOutcome(nil))
	require.Equal(testInstance, fetch.OutcomeConfiguration, fetch.ClassifyOutcome(fetch.ErrRepositoryURLRequired))
	require.Equal(testInstance, fetch.OutcomeBusy, fetch.ClassifyOutcome(fetch.ErrFetchInProgress))
	require.Equal(testInstance, fetch.OutcomeNotReady, fetch.ClassifyOutcome(fetch.ErrServiceNotReady))
	require.Equal(testInstance, fetch.OutcomeEmptyHistory, fetch.ClassifyOutcome(history.ErrEmptyHistory))
	require.Equal(testInstance, fetch.OutcomeUpstream, fetch.ClassifyOutcome(&fetch.UpstreamFetchError{Stage: fetch.StageClone, Err: errors.New("boom")}))
	require.Equal(testInstance, fetch.OutcomeCanceled, fetch.ClassifyOutcome(&fetch.UpstreamFetchError{Stage: fetch.StageClone, Err: context.Canceled}))
	require.Equal(testInstance, fetch.OutcomeFailed, fetch.ClassifyOutcome(errors.New("other")))
}
