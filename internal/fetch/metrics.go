package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/repodiff/internal/history"
)

const (
	metricsNamespaceConstant         = "repodiff"
	fetchDurationMetricNameConstant  = "fetch_duration_seconds"
	fetchDurationMetricHelpConstant  = "Duration of repository diff fetches by outcome."
	filesAssembledMetricNameConstant = "files_assembled_total"
	filesAssembledMetricHelpConstant = "Files with changes returned by successful fetches."
	fileWarningsMetricNameConstant   = "file_read_warnings_total"
	fileWarningsMetricHelpConstant   = "File reads that failed and were replaced with empty content."
	outcomeLabelNameConstant         = "outcome"
)

// Fetch outcomes recorded as metric labels and span attributes.
const (
	OutcomeSuccess       = "success"
	OutcomeConfiguration = "configuration_error"
	OutcomeNotReady      = "not_ready"
	OutcomeBusy          = "busy"
	OutcomeEmptyHistory  = "empty_history"
	OutcomeUpstream      = "upstream_error"
	OutcomeCanceled      = "canceled"
	OutcomeFailed        = "failed"
)

// Metrics records fetch measurements. A nil *Metrics records nothing.
type Metrics struct {
	fetchDuration  *prometheus.HistogramVec
	filesAssembled prometheus.Counter
	fileWarnings   prometheus.Counter
}

// NewMetrics creates the fetch collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Name:      fetchDurationMetricNameConstant,
			Help:      fetchDurationMetricHelpConstant,
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{outcomeLabelNameConstant}),
		filesAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      filesAssembledMetricNameConstant,
			Help:      filesAssembledMetricHelpConstant,
		}),
		fileWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      fileWarningsMetricNameConstant,
			Help:      fileWarningsMetricHelpConstant,
		}),
	}

	if registerer == nil {
		return metrics, nil
	}
	for _, collector := range []prometheus.Collector{metrics.fetchDuration, metrics.filesAssembled, metrics.fileWarnings} {
		if registerError := registerer.Register(collector); registerError != nil {
			return nil, registerError
		}
	}
	return metrics, nil
}

func (metrics *Metrics) observeFetch(outcome string, duration time.Duration, result FetchResult) {
	if metrics == nil {
		return
	}
	metrics.fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome != OutcomeSuccess {
		return
	}
	metrics.filesAssembled.Add(float64(len(result.Files)))
	metrics.fileWarnings.Add(float64(len(result.Warnings)))
}

// ClassifyOutcome maps a fetch error to its outcome label.
func ClassifyOutcome(fetchError error) string {
	var upstreamError *UpstreamFetchError
	switch {
	case fetchError == nil:
		return OutcomeSuccess
	case errors.Is(fetchError, ErrRepositoryURLRequired):
		return OutcomeConfiguration
	case errors.Is(fetchError, ErrServiceNotReady):
		return OutcomeNotReady
	case errors.Is(fetchError, ErrFetchInProgress):
		return OutcomeBusy
	case errors.Is(fetchError, context.Canceled), errors.Is(fetchError, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(fetchError, history.ErrEmptyHistory):
		return OutcomeEmptyHistory
	case errors.As(fetchError, &upstreamError):
		return OutcomeUpstream
	default:
		return OutcomeFailed
	}
}
