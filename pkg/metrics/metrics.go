package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process registry exposed on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		InboundTotal, TasksTotal, TaskDuration,
		AgentDuration, OutboundTotal, InFlight,
	)
}

// InboundTotal counts webhook deliveries by outcome
// (accepted | duplicate | dropped | ignored | filtered | rejected).
var InboundTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aiwa_inbound_messages_total",
		Help: "Inbound webhook messages by outcome",
	},
	[]string{"outcome"},
)

// TasksTotal counts finished background tasks by intent and status.
var TasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aiwa_tasks_total",
		Help: "Processed messages by intent and status",
	},
	[]string{"intent", "status"}, // completed | failed
)

var TaskDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "aiwa_task_duration_seconds",
		Help:    "Time from task start to ledger release",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"intent"},
)

var AgentDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "aiwa_agent_duration_seconds",
		Help:    "Agent runtime invocation latency",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	},
	[]string{"provider"},
)

// OutboundTotal counts Cloud API calls by kind (text | image | document | upload) and result.
var OutboundTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aiwa_outbound_requests_total",
		Help: "WhatsApp Cloud API requests",
	},
	[]string{"kind", "result"},
)

var InFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "aiwa_inflight_messages",
		Help: "Messages whose task is currently running",
	},
)

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
