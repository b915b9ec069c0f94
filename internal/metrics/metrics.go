package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registerOnce sync.Once

	decisionsTotal     *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	transitionsTotal   *prometheus.CounterVec
	sweepBatchSize     prometheus.Histogram
)

func ensureCollectors() {
	registerOnce.Do(func() {
		decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "engine_decisions_total",
			Help:      "Decision engine outcomes by notification kind.",
		}, []string{"kind"})

		confirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "engine_confirmations_total",
			Help:      "Confirmation channel resolutions by result.",
		}, []string{"result"})

		transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "automation_transitions_total",
			Help:      "Session transitions applied by the automation loop.",
		}, []string{"transition"})

		sweepBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "sweep_batch_size",
			Help:      "Records finalized to absent per swept session.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		})
	})
}

// Service exposes the engine and automation collectors. A nil *Service is
// valid and records nothing, so wiring metrics stays optional in tests.
type Service struct{}

func New() *Service {
	ensureCollectors()
	return &Service{}
}

func (s *Service) IncDecision(kind string) {
	if s == nil {
		return
	}
	decisionsTotal.WithLabelValues(kind).Inc()
}

func (s *Service) IncConfirmation(result string) {
	if s == nil {
		return
	}
	confirmationsTotal.WithLabelValues(result).Inc()
}

func (s *Service) IncTransition(transition string) {
	if s == nil {
		return
	}
	transitionsTotal.WithLabelValues(transition).Inc()
}

func (s *Service) ObserveSweepBatch(size int) {
	if s == nil {
		return
	}
	sweepBatchSize.Observe(float64(size))
}
