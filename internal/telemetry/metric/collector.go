package metric

import "github.com/prometheus/client_golang/prometheus"

// StateSource reports live client state at scrape time.
// *transporter.Transporter satisfies it.
type StateSource interface {
	IsConnected() bool
	IsSubscribed() bool
	SelectedDB() int
}

// SubscriptionSource reports pub/sub router state. *pubsub.Router
// satisfies it.
type SubscriptionSource interface {
	Count() int
	Subscribers() int
	Dropped() uint64
}

// StateCollector exports the state of one client as gauges. Either source
// may be nil.
type StateCollector struct {
	state StateSource
	subs  SubscriptionSource

	connected  *prometheus.Desc
	subscribed *prometheus.Desc
	selectedDB *prometheus.Desc
	names      *prometheus.Desc
	subsOpen   *prometheus.Desc
	dropped    *prometheus.Desc
}

// NewStateCollector creates a collector labelled with the client name.
func NewStateCollector(name string, state StateSource, subs SubscriptionSource) *StateCollector {
	labels := prometheus.Labels{"client": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}
	return &StateCollector{
		state:      state,
		subs:       subs,
		connected:  desc("connected", "1 when the primary connection is open"),
		subscribed: desc("subscribed", "1 when the client is in subscribed state"),
		selectedDB: desc("selected_db", "Database selected on the primary connection"),
		names:      desc("subscriptions", "Channels, patterns and shard channels with at least one subscriber"),
		subsOpen:   desc("subscribers", "Open subscriptions"),
		dropped:    desc("dropped_messages_total", "Messages dropped because a subscriber was not reading"),
	}
}

// Describe implements prometheus.Collector.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	if c.state != nil {
		ch <- c.connected
		ch <- c.subscribed
		ch <- c.selectedDB
	}
	if c.subs != nil {
		ch <- c.names
		ch <- c.subsOpen
		ch <- c.dropped
	}
}

// Collect implements prometheus.Collector.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	if c.state != nil {
		ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(c.state.IsConnected()))
		ch <- prometheus.MustNewConstMetric(c.subscribed, prometheus.GaugeValue, boolValue(c.state.IsSubscribed()))
		ch <- prometheus.MustNewConstMetric(c.selectedDB, prometheus.GaugeValue, float64(c.state.SelectedDB()))
	}
	if c.subs != nil {
		ch <- prometheus.MustNewConstMetric(c.names, prometheus.GaugeValue, float64(c.subs.Count()))
		ch <- prometheus.MustNewConstMetric(c.subsOpen, prometheus.GaugeValue, float64(c.subs.Subscribers()))
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.subs.Dropped()))
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
