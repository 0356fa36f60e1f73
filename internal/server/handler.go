package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/temirov/repodiff/internal/export"
	"github.com/temirov/repodiff/internal/fetch"
	"github.com/temirov/repodiff/internal/history"
	"github.com/temirov/repodiff/internal/relay"
	"github.com/temirov/repodiff/internal/share"
)

// API routes.
const (
	DiffRoute     = "/api/diff"
	MarkdownRoute = "/api/diff.md"
	RangesRoute   = "/api/ranges"
	StatusRoute   = "/api/status"
	MetricsRoute  = "/metrics"
)

const (
	tracerNameConstant                 = "github.com/temirov/repodiff/internal/server"
	getMethodPatternPrefixConstant     = http.MethodGet + " "
	routeSeparatorConstant             = "/"
	contentTypeHeaderConstant          = "Content-Type"
	jsonContentTypeConstant            = "application/json"
	markdownContentTypeConstant        = "text/markdown; charset=utf-8"
	jsonIndentConstant                 = "  "
	fetcherRequiredMessageConstant     = "server handler requires a fetcher"
	invalidShareQueryOutcomeConstant   = fetch.OutcomeConfiguration
	requestRejectedMessageConstant     = "Diff request rejected"
	requestFailedMessageConstant       = "Diff request failed"
	responseWriteFailedMessageConstant = "Failed to write response"
	routeFieldNameConstant             = "route"
	statusFieldNameConstant            = "status"
	outcomeFieldNameConstant           = "outcome"
	repositoryFieldNameConstant        = "repository"
)

// ErrFetcherRequired indicates a handler built without a fetch service.
var ErrFetcherRequired = errors.New(fetcherRequiredMessageConstant)

// Fetcher runs fetches for the API.
type Fetcher interface {
	Fetch(ctx context.Context, request fetch.Request) (fetch.FetchResult, error)
	Busy() bool
}

// HandlerOptions wires the collaborators of the HTTP handler.
type HandlerOptions struct {
	Fetcher Fetcher
	// Relay is mounted under its prefix when present.
	Relay    *relay.Handler
	Gatherer prometheus.Gatherer
	Clock    history.Clock
	Depth    int
	Logger   *zap.Logger
	Tracer   trace.Tracer
}

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
}

// StatusResponse reports whether a fetch is running.
type StatusResponse struct {
	Busy bool `json:"busy"`
}

// RangeEntry describes one duration ladder entry.
type RangeEntry struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Label   string `json:"label"`
	Seconds int64  `json:"seconds"`
	Default bool   `json:"default"`
}

type apiHandler struct {
	fetcher Fetcher
	clock   history.Clock
	depth   int
	logger  *zap.Logger
}

// NewHandler builds the traced HTTP handler serving the API, the relay, and metrics.
func NewHandler(options HandlerOptions) (http.Handler, error) {
	if options.Fetcher == nil {
		return nil, ErrFetcherRequired
	}

	api := &apiHandler{
		fetcher: options.Fetcher,
		clock:   options.Clock,
		depth:   options.Depth,
		logger:  options.Logger,
	}
	if api.clock == nil {
		api.clock = history.SystemClock{}
	}
	if api.logger == nil {
		api.logger = zap.NewNop()
	}

	gatherer := options.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	tracer := options.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerNameConstant)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(getMethodPatternPrefixConstant+DiffRoute, api.serveDiff)
	mux.HandleFunc(getMethodPatternPrefixConstant+MarkdownRoute, api.serveMarkdown)
	mux.HandleFunc(getMethodPatternPrefixConstant+RangesRoute, api.serveRanges)
	mux.HandleFunc(getMethodPatternPrefixConstant+StatusRoute, api.serveStatus)
	mux.Handle(getMethodPatternPrefixConstant+MetricsRoute, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if options.Relay != nil {
		mux.Handle(options.Relay.Prefix(), options.Relay)
		mux.Handle(options.Relay.Prefix()+routeSeparatorConstant, options.Relay)
	}

	return TracingMiddleware(tracer, mux), nil
}

// StatusForError maps a fetch failure to its HTTP status code.
func StatusForError(fetchError error) int {
	switch fetch.ClassifyOutcome(fetchError) {
	case fetch.OutcomeSuccess:
		return http.StatusOK
	case fetch.OutcomeConfiguration:
		return http.StatusBadRequest
	case fetch.OutcomeBusy:
		return http.StatusConflict
	case fetch.OutcomeEmptyHistory:
		return http.StatusUnprocessableEntity
	case fetch.OutcomeUpstream:
		return http.StatusBadGateway
	case fetch.OutcomeNotReady, fetch.OutcomeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (api *apiHandler) serveDiff(responseWriter http.ResponseWriter, request *http.Request) {
	result, ok := api.runFetch(responseWriter, request)
	if !ok {
		return
	}
	api.writeJSON(responseWriter, http.StatusOK, result)
}

func (api *apiHandler) serveMarkdown(responseWriter http.ResponseWriter, request *http.Request) {
	result, ok := api.runFetch(responseWriter, request)
	if !ok {
		return
	}

	var document bytes.Buffer
	if renderError := (export.MarkdownRenderer{}).Render(&document, result); renderError != nil {
		api.writeError(responseWriter, http.StatusInternalServerError, fetch.OutcomeFailed, renderError)
		return
	}
	responseWriter.Header().Set(contentTypeHeaderConstant, markdownContentTypeConstant)
	responseWriter.WriteHeader(http.StatusOK)
	if _, writeError := responseWriter.Write(document.Bytes()); writeError != nil {
		api.logger.Debug(responseWriteFailedMessageConstant, zap.String(routeFieldNameConstant, MarkdownRoute), zap.Error(writeError))
	}
}

func (api *apiHandler) serveRanges(responseWriter http.ResponseWriter, _ *http.Request) {
	ladder := history.DurationLadder()
	entries := make([]RangeEntry, 0, len(ladder))
	for index, option := range ladder {
		entries = append(entries, RangeEntry{
			Index:   index,
			Key:     option.Key,
			Label:   option.Label,
			Seconds: int64(option.Duration.Seconds()),
			Default: index == history.DefaultLadderIndex,
		})
	}
	api.writeJSON(responseWriter, http.StatusOK, entries)
}

func (api *apiHandler) serveStatus(responseWriter http.ResponseWriter, _ *http.Request) {
	api.writeJSON(responseWriter, http.StatusOK, StatusResponse{Busy: api.fetcher.Busy()})
}

func (api *apiHandler) runFetch(responseWriter http.ResponseWriter, request *http.Request) (fetch.FetchResult, bool) {
	configuration, decodeError := share.Decode(request.URL.RawQuery, api.clock)
	if decodeError != nil {
		api.logger.Debug(requestRejectedMessageConstant, zap.Error(decodeError))
		api.writeError(responseWriter, http.StatusBadRequest, invalidShareQueryOutcomeConstant, decodeError)
		return fetch.FetchResult{}, false
	}

	result, fetchError := api.fetcher.Fetch(request.Context(), fetch.Request{
		RepositoryURL: configuration.RepositoryURL,
		Extensions:    configuration.Extensions,
		Window:        configuration.Window(),
		Depth:         api.depth,
	})
	if fetchError != nil {
		statusCode := StatusForError(fetchError)
		outcome := fetch.ClassifyOutcome(fetchError)
		api.logger.Warn(requestFailedMessageConstant,
			zap.String(repositoryFieldNameConstant, configuration.RepositoryURL),
			zap.Int(statusFieldNameConstant, statusCode),
			zap.String(outcomeFieldNameConstant, outcome),
			zap.Error(fetchError),
		)
		api.writeError(responseWriter, statusCode, outcome, fetchError)
		return fetch.FetchResult{}, false
	}
	return result, true
}

func (api *apiHandler) writeError(responseWriter http.ResponseWriter, statusCode int, outcome string, failure error) {
	api.writeJSON(responseWriter, statusCode, ErrorResponse{Error: failure.Error(), Outcome: outcome})
}

func (api *apiHandler) writeJSON(responseWriter http.ResponseWriter, statusCode int, value any) {
	encoded, encodeError := json.MarshalIndent(value, "", jsonIndentConstant)
	if encodeError != nil {
		statusCode = http.StatusInternalServerError
		encoded, _ = json.Marshal(ErrorResponse{Error: encodeError.Error(), Outcome: fetch.OutcomeFailed})
	}
	responseWriter.Header().Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	responseWriter.WriteHeader(statusCode)
	if _, writeError := responseWriter.Write(encoded); writeError != nil {
		api.logger.Debug(responseWriteFailedMessageConstant, zap.Int(statusFieldNameConstant, statusCode), zap.Error(writeError))
	}
}
