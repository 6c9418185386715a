package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels. Rejections are labelled with their numeric code instead.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics provides observability for the registry module.
// Tracks operation outcomes, critical path durations, and event delivery failures.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TokensMinted      prometheus.Counter
	TokensBurned      prometheus.Counter
	PublishFailures   *prometheus.CounterVec
}

// New creates a new Metrics instance with all registry metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_registry_operations_total",
			Help: "Registry mutations by operation and outcome (ok or rejection code)",
		}, []string{"operation", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "atelier_registry_operation_duration_seconds",
			Help:    "Duration of registry mutations including commit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		TokensMinted: factory.NewCounter(prometheus.CounterOpts{
			Name: "atelier_registry_tokens_minted_total",
			Help: "Total number of records minted",
		}),
		TokensBurned: factory.NewCounter(prometheus.CounterOpts{
			Name: "atelier_registry_tokens_burned_total",
			Help: "Total number of records burned",
		}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "atelier_registry_event_publish_failures_total",
			Help: "Event batches a sink failed to deliver after the call committed",
		}, []string{"sink"}),
	}
}

// RejectionOutcome is the outcome label for a registry rejection code.
func RejectionOutcome(code int) string {
	return strconv.Itoa(code)
}

// ObserveOperation records the outcome and duration of one mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementMinted() {
	m.TokensMinted.Inc()
}

func (m *Metrics) IncrementBurned() {
	m.TokensBurned.Inc()
}

func (m *Metrics) IncrementPublishFailure(sink string) {
	m.PublishFailures.WithLabelValues(sink).Inc()
}
