package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kdimtricp/tourvision/internal/usage"
)

const namespace = "tourvision"

// Collector holds the pipeline metrics on its own registry so tests and
// multiple servers never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	apiCallsTotal   *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	clipsTotal      *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		apiCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Total number of provider API calls, by process kind and model",
		}, []string{"process", "model"}),

		apiCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_call_duration_seconds",
			Help:      "Provider call duration in seconds, including video generation polling",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"model"}),

		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider",
		}, []string{"model", "kind"}),

		clipsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_total",
			Help:      "Scene clips processed, by status",
		}, []string{"status"}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs, by final status",
		}, []string{"status"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Write implements usage.Sink.
func (c *Collector) Write(ctx context.Context, rec usage.Record) error {
	c.apiCallsTotal.WithLabelValues(ProcessKind(rec.Process), rec.Model).Inc()
	c.apiCallDuration.WithLabelValues(rec.Model).Observe(rec.Elapsed.Seconds())

	c.tokensTotal.WithLabelValues(rec.Model, "prompt").Add(float64(rec.PromptTokens))
	c.tokensTotal.WithLabelValues(rec.Model, "candidate").Add(float64(rec.CandidateTokens))
	c.tokensTotal.WithLabelValues(rec.Model, "total").Add(float64(rec.TotalTokens))
	return nil
}

func (c *Collector) RecordClip(status string) {
	c.clipsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRun(status string) {
	c.runsTotal.WithLabelValues(status).Inc()
}

// ProcessKind strips the per-item suffix so "Image Classification (1.jpg)"
// does not become its own label value.
func ProcessKind(process string) string {
	for i := 0; i < len(process); i++ {
		if process[i] == '(' {
			end := i
			for end > 0 && process[end-1] == ' ' {
				end--
			}
			return process[:end]
		}
	}
	return process
}
