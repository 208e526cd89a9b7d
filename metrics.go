package relaybuf

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector is a prometheus.Collector that counts how events leave a relay.
// A nil *Collector is valid and records nothing.
type Collector struct {
	emitted    prometheus.Counter
	buffered   prometheus.Counter
	handedOff  prometheus.Counter
	overflowed prometheus.Counter
	discarded  prometheus.Counter
	pulled     prometheus.Counter
	pending    prometheus.Gauge
}

// NewCollector returns a new Collector whose metrics live under namespace.
func NewCollector(namespace string) *Collector {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	return &Collector{
		emitted:    counter("events_emitted_total", "The number of events passed to Emit."),
		buffered:   counter("events_buffered_total", "The number of events appended to the pending queue."),
		handedOff:  counter("events_handed_off_total", "The number of events handed directly to a waiting consumer."),
		overflowed: counter("events_overflowed_total", "The number of events routed to overflow listeners."),
		discarded:  counter("events_discarded_total", "The number of events emitted after the relay ended."),
		pulled:     counter("events_pulled_total", "The number of events returned to the consumer."),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_events",
			Help:      "The number of events waiting in the pending queue.",
		}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.emitted.Describe(ch)
	c.buffered.Describe(ch)
	c.handedOff.Describe(ch)
	c.overflowed.Describe(ch)
	c.discarded.Describe(ch)
	c.pulled.Describe(ch)
	c.pending.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.emitted.Collect(ch)
	c.buffered.Collect(ch)
	c.handedOff.Collect(ch)
	c.overflowed.Collect(ch)
	c.discarded.Collect(ch)
	c.pulled.Collect(ch)
	c.pending.Collect(ch)
}

func (c *Collector) observeEmit(r route, pending int) {
	if c == nil {
		return
	}
	c.emitted.Inc()
	switch r {
	case routeDiscard:
		c.discarded.Inc()
	case routeHandoff:
		c.handedOff.Inc()
	case routeBuffer:
		c.buffered.Inc()
	case routeOverflow:
		c.overflowed.Inc()
	}
	c.pending.Set(float64(pending))
}

func (c *Collector) observePull(pending int) {
	if c == nil {
		return
	}
	c.pulled.Inc()
	c.pending.Set(float64(pending))
}
