package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rediswire"

// Registry holds the client metrics and the Prometheus registry they are
// registered with. It implements transporter.Metrics.
type Registry struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Wire metrics
	BytesWritten prometheus.Counter
	BytesRead    prometheus.Counter

	// Push metrics
	PushMessages     *prometheus.CounterVec
	PushDecodeErrors prometheus.Counter

	// Connection metrics
	ConnectsTotal *prometheus.CounterVec
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler serves the global registry in the Prometheus text format.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with the client metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent, by path and result",
		}, []string{"path", "result"}),

		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from write to the last reply of a command",
			Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"path"}),

		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to server connections",
		}),

		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes read from server connections",
		}),

		PushMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_messages_total",
			Help:      "Pub/sub messages received, by type",
		}, []string{"type"}),

		PushDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_decode_errors_total",
			Help:      "Undecodable data discarded from the push connection",
		}),

		ConnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connection attempts, by result",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CommandsTotal,
		r.CommandDuration,
		r.BytesWritten,
		r.BytesRead,
		r.PushMessages,
		r.PushDecodeErrors,
		r.ConnectsTotal,
	)
	return r
}

// Register adds extra collectors, such as a StateCollector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves this registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records one command and its duration.
func (r *Registry) ObserveCommand(path, result string, d time.Duration) {
	r.CommandsTotal.WithLabelValues(path, result).Inc()
	r.CommandDuration.WithLabelValues(path).Observe(d.Seconds())
}

// AddBytesWritten counts bytes written.
func (r *Registry) AddBytesWritten(n int) {
	r.BytesWritten.Add(float64(n))
}

// AddBytesRead counts bytes read.
func (r *Registry) AddBytesRead(n int) {
	r.BytesRead.Add(float64(n))
}

// IncPushMessage counts one pub/sub message of the given type.
func (r *Registry) IncPushMessage(kind string) {
	r.PushMessages.WithLabelValues(kind).Inc()
}

// IncPushDecodeError counts one discarded push buffer.
func (r *Registry) IncPushDecodeError() {
	r.PushDecodeErrors.Inc()
}

// IncConnect counts one connection attempt.
func (r *Registry) IncConnect(result string) {
	r.ConnectsTotal.WithLabelValues(result).Inc()
}
