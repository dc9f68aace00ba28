package transport

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess        = "success"
	OutcomeCanceled       = "canceled"
	OutcomeNetwork        = "network_error"
	OutcomeSessionExpired = "session_expired"
	OutcomeBusiness       = "business_error"
	OutcomeHTTP           = "http_error"
	OutcomeMalformed      = "malformed"
	OutcomeInvalid        = "invalid_request"
)

// RequestsTotal counts settled dispatches.
// Use RegisterMetrics to register this with a Prometheus registry.
var RequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "apiclient_requests_total",
		Help: "Total number of settled client requests",
	},
	[]string{"method", "outcome"},
)

// RetriesTotal counts automatic re-dispatches.
var RetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "apiclient_retries_total",
		Help: "Total number of automatic request retries",
	},
	[]string{"method"},
)

// PendingRequests tracks registry entries across all clients in the process.
var PendingRequests = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "apiclient_pending_requests",
		Help: "Number of in-flight requests held in pending registries",
	},
)

// RegisterMetrics registers transport metrics with the given Prometheus
// registry. The collectors are process-wide, so registering them again with
// the same registry is a no-op.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RequestsTotal, RetriesTotal, PendingRequests} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("%s - failed to register metrics: %w", logPrefix, err)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	e, ok := AsError(err)
	if !ok {
		return OutcomeNetwork
	}
	switch e.Kind {
	case KindCanceled:
		return OutcomeCanceled
	case KindSessionExpired:
		return OutcomeSessionExpired
	case KindBusiness:
		return OutcomeBusiness
	case KindHTTP:
		return OutcomeHTTP
	case KindMalformed:
		return OutcomeMalformed
	case KindInvalidRequest:
		return OutcomeInvalid
	default:
		return OutcomeNetwork
	}
}

func recordRequest(method string, err error) {
	RequestsTotal.WithLabelValues(method, outcomeOf(err)).Inc()
}

func recordRetry(method string) {
	RetriesTotal.WithLabelValues(method).Inc()
}
