package relay

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// DefaultPrefix is the path prefix the relay serves when none is configured.
	DefaultPrefix = "/proxy"
	// DefaultUpstreamURL is the upstream host relayed to when none is configured.
	DefaultUpstreamURL = "https://github.com"
	// DefaultUserAgent is the user agent presented to the upstream.
	DefaultUserAgent = "git/2.0.0"

	userAgentHeaderConstant             = "User-Agent"
	acceptHeaderConstant                = "Accept"
	acceptAnyValueConstant              = "*/*"
	contentTypeHeaderConstant           = "Content-Type"
	uploadPackContentTypeConstant       = "application/x-git-upload-pack-request"
	uploadPackPathMarkerConstant        = "git-upload-pack"
	allowOriginHeaderConstant           = "Access-Control-Allow-Origin"
	allowMethodsHeaderConstant          = "Access-Control-Allow-Methods"
	allowHeadersHeaderConstant          = "Access-Control-Allow-Headers"
	exposeHeadersHeaderConstant         = "Access-Control-Expose-Headers"
	maxAgeHeaderConstant                = "Access-Control-Max-Age"
	requestHeadersHeaderConstant        = "Access-Control-Request-Headers"
	allowAnyValueConstant               = "*"
	allowedMethodsValueConstant         = "GET, POST, OPTIONS"
	preflightMaxAgeValueConstant        = "86400"
	pathSeparatorConstant               = "/"
	metricsNamespaceConstant            = "repodiff"
	relayRequestsMetricNameConstant     = "relay_requests_total"
	relayRequestsMetricHelpConstant     = "Relayed requests by upstream status code."
	statusCodeLabelNameConstant         = "code"
	upstreamFailureLabelValueConstant   = "upstream_error"
	relayFailureMessageConstant         = "Relay request failed"
	relayForwardedMessageConstant       = "Relayed request"
	methodFieldNameConstant             = "method"
	pathFieldNameConstant               = "path"
	statusFieldNameConstant             = "status"
	invalidUpstreamTemplateConstant     = "invalid relay upstream %q: %w"
	upstreamRequiresHostMessageConstant = "upstream url must include a scheme and host"
)

// ErrInvalidUpstream indicates the upstream URL cannot be relayed to.
var ErrInvalidUpstream = errors.New(upstreamRequiresHostMessageConstant)

// Options configures a relay handler.
type Options struct {
	UpstreamURL string
	Prefix      string
	UserAgent   string
	Logger      *zap.Logger
	Metrics     *Metrics
	Transport   http.RoundTripper
}

// Metrics counts relayed requests. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics creates the relay collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{requests: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespaceConstant,
		Name:      relayRequestsMetricNameConstant,
		Help:      relayRequestsMetricHelpConstant,
	}, []string{statusCodeLabelNameConstant})}
	if registerer == nil {
		return metrics, nil
	}
	if registerError := registerer.Register(metrics.requests); registerError != nil {
		return nil, registerError
	}
	return metrics, nil
}

func (metrics *Metrics) record(label string) {
	if metrics == nil {
		return
	}
	metrics.requests.WithLabelValues(label).Inc()
}

// Handler forwards prefixed requests to the upstream host.
type Handler struct {
	upstream  *url.URL
	prefix    string
	userAgent string
	logger    *zap.Logger
	metrics   *Metrics
	proxy     *httputil.ReverseProxy
}

// NewHandler constructs a relay Handler, applying defaults for empty options.
func NewHandler(options Options) (*Handler, error) {
	upstreamText := strings.TrimSpace(options.UpstreamURL)
	if len(upstreamText) == 0 {
		upstreamText = DefaultUpstreamURL
	}
	upstream, parseError := url.Parse(upstreamText)
	if parseError != nil {
		return nil, fmt.Errorf(invalidUpstreamTemplateConstant, upstreamText, parseError)
	}
	if len(upstream.Scheme) == 0 || len(upstream.Host) == 0 {
		return nil, fmt.Errorf(invalidUpstreamTemplateConstant, upstreamText, ErrInvalidUpstream)
	}

	handler := &Handler{
		upstream:  upstream,
		prefix:    NormalizePrefix(options.Prefix),
		userAgent: strings.TrimSpace(options.UserAgent),
		logger:    options.Logger,
		metrics:   options.Metrics,
	}
	if len(handler.userAgent) == 0 {
		handler.userAgent = DefaultUserAgent
	}
	if handler.logger == nil {
		handler.logger = zap.NewNop()
	}

	handler.proxy = &httputil.ReverseProxy{
		Rewrite:        handler.rewrite,
		ModifyResponse: handler.modifyResponse,
		ErrorHandler:   handler.handleError,
		Transport:      options.Transport,
	}
	return handler, nil
}

// Prefix returns the normalized path prefix served by the handler.
func (handler *Handler) Prefix() string {
	return handler.prefix
}

// ServeHTTP answers preflight requests and relays everything else.
func (handler *Handler) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method == http.MethodOptions {
		handler.servePreflight(responseWriter, request)
		return
	}
	handler.proxy.ServeHTTP(responseWriter, request)
}

// NormalizePrefix returns prefix with a single leading separator and no trailing separator.
func NormalizePrefix(prefix string) string {
	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), pathSeparatorConstant)
	if len(trimmedPrefix) == 0 {
		return DefaultPrefix
	}
	return pathSeparatorConstant + trimmedPrefix
}

// UpstreamPath maps an inbound request path to the upstream path.
// Paths may name the upstream host as their first segment, as git clients configured with a CORS proxy do.
func (handler *Handler) UpstreamPath(requestPath string) string {
	subPath := strings.TrimPrefix(requestPath, handler.prefix)
	subPath = strings.TrimPrefix(subPath, pathSeparatorConstant)
	hostSegment := handler.upstream.Host + pathSeparatorConstant
	if strings.HasPrefix(subPath, hostSegment) {
		subPath = strings.TrimPrefix(subPath, hostSegment)
	}
	return strings.TrimRight(handler.upstream.Path, pathSeparatorConstant) + pathSeparatorConstant + subPath
}

func (handler *Handler) rewrite(proxyRequest *httputil.ProxyRequest) {
	proxyRequest.Out.URL.Scheme = handler.upstream.Scheme
	proxyRequest.Out.URL.Host = handler.upstream.Host
	proxyRequest.Out.URL.Path = handler.UpstreamPath(proxyRequest.In.URL.Path)
	proxyRequest.Out.URL.RawPath = ""
	proxyRequest.Out.Host = handler.upstream.Host

	proxyRequest.Out.Header.Set(userAgentHeaderConstant, handler.userAgent)
	proxyRequest.Out.Header.Set(acceptHeaderConstant, acceptAnyValueConstant)
	if strings.Contains(proxyRequest.In.URL.Path, uploadPackPathMarkerConstant) {
		proxyRequest.Out.Header.Set(contentTypeHeaderConstant, uploadPackContentTypeConstant)
	}
}

func (handler *Handler) modifyResponse(response *http.Response) error {
	response.Header.Set(allowOriginHeaderConstant, allowAnyValueConstant)
	response.Header.Set(exposeHeadersHeaderConstant, allowAnyValueConstant)
	handler.metrics.record(strconv.Itoa(response.StatusCode))
	handler.logger.Debug(relayForwardedMessageConstant,
		zap.String(methodFieldNameConstant, response.Request.Method),
		zap.String(pathFieldNameConstant, response.Request.URL.Path),
		zap.Int(statusFieldNameConstant, response.StatusCode),
	)
	return nil
}

func (handler *Handler) handleError(responseWriter http.ResponseWriter, request *http.Request, relayError error) {
	handler.metrics.record(upstreamFailureLabelValueConstant)
	handler.logger.Warn(relayFailureMessageConstant,
		zap.String(methodFieldNameConstant, request.Method),
		zap.String(pathFieldNameConstant, request.URL.Path),
		zap.Error(relayError),
	)
	responseWriter.Header().Set(allowOriginHeaderConstant, allowAnyValueConstant)
	responseWriter.WriteHeader(http.StatusBadGateway)
}

func (handler *Handler) servePreflight(responseWriter http.ResponseWriter, request *http.Request) {
	headers := responseWriter.Header()
	headers.Set(allowOriginHeaderConstant, allowAnyValueConstant)
	headers.Set(allowMethodsHeaderConstant, allowedMethodsValueConstant)
	requestedHeaders := request.Header.Get(requestHeadersHeaderConstant)
	if len(requestedHeaders) == 0 {
		requestedHeaders = allowAnyValueConstant
	}
	headers.Set(allowHeadersHeaderConstant, requestedHeaders)
	headers.Set(maxAgeHeaderConstant, preflightMaxAgeValueConstant)
	responseWriter.WriteHeader(http.StatusNoContent)
}
