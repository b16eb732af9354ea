// Package metrics implements driven.Metrics with Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

const namespace = "forager"

// Ensure the implementations satisfy the interface.
var (
	_ driven.Metrics = (*Prometheus)(nil)
	_ driven.Metrics = Nop{}
)

// Prometheus records metrics on a private registry.
type Prometheus struct {
	registry      *prometheus.Registry
	threads       *prometheus.CounterVec
	chunks        prometheus.Counter
	seedDuration  prometheus.Histogram
	toolCalls     *prometheus.CounterVec
	agentMessages *prometheus.CounterVec
	iterations    prometheus.Histogram
}

// NewPrometheus registers Forager's collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		threads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_ingested_total",
			Help:      "Threads processed by the ingestion pipeline, by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunks written to the knowledge store.",
		}),
		seedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seed_duration_seconds",
			Help:      "Wall time of seed runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_dispatches_total",
			Help:      "Tool calls dispatched, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		agentMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_messages_total",
			Help:      "User messages processed by the agent, by outcome.",
		}, []string{"outcome"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_iterations",
			Help:      "Reasoning calls per user message.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
	}

	p.registry.MustRegister(
		p.threads, p.chunks, p.seedDuration, p.toolCalls, p.agentMessages, p.iterations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry exposes the underlying registry for tests and custom exporters.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// ThreadIngested counts one thread by outcome.
func (p *Prometheus) ThreadIngested(outcome string) {
	p.threads.WithLabelValues(outcome).Inc()
}

// ChunksWritten adds n written chunks.
func (p *Prometheus) ChunksWritten(n int) {
	if n > 0 {
		p.chunks.Add(float64(n))
	}
}

// SeedCompleted observes a seed run's duration.
func (p *Prometheus) SeedCompleted(d time.Duration) {
	p.seedDuration.Observe(d.Seconds())
}

// ToolDispatched counts one tool call.
func (p *Prometheus) ToolDispatched(tool, outcome string) {
	p.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// AgentMessage counts one processed message and observes its iterations.
func (p *Prometheus) AgentMessage(outcome string, iterations int) {
	p.agentMessages.WithLabelValues(outcome).Inc()
	p.iterations.Observe(float64(iterations))
}

// Nop discards all metrics.
type Nop struct{}

// ThreadIngested does nothing.
func (Nop) ThreadIngested(string) {}

// ChunksWritten does nothing.
func (Nop) ChunksWritten(int) {}

// SeedCompleted does nothing.
func (Nop) SeedCompleted(time.Duration) {}

// ToolDispatched does nothing.
func (Nop) ToolDispatched(string, string) {}

// AgentMessage does nothing.
func (Nop) AgentMessage(string, int) {}
