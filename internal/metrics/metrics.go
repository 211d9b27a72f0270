package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the assistant's instruments. A nil *Recorder records
// nothing, so components can run without metrics.
type Recorder struct {
	turns      *prometheus.CounterVec
	mailOps    *prometheus.CounterVec
	genCalls   *prometheus.CounterVec
	turnLength prometheus.Histogram
}

func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailvoice_turns_total",
			Help: "Dispatcher turns by the route that produced the response",
		}, []string{"route"}),
		mailOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailvoice_mail_ops_total",
			Help: "Mail service operations by outcome",
		}, []string{"op", "status"}),
		genCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mailvoice_generation_calls_total",
			Help: "Generation service calls by outcome",
		}, []string{"call", "status"}),
		turnLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailvoice_turn_duration_seconds",
			Help:    "Time taken to answer one turn",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) ObserveTurn(route string, took time.Duration) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(route).Inc()
	r.turnLength.Observe(took.Seconds())
}

func (r *Recorder) ObserveMailOp(op, status string) {
	if r == nil {
		return
	}
	r.mailOps.WithLabelValues(op, status).Inc()
}

func (r *Recorder) ObserveGeneration(call, status string) {
	if r == nil {
		return
	}
	r.genCalls.WithLabelValues(call, status).Inc()
}
