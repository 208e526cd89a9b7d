package relaybuf

import (
	"io"

	"github.com/sirupsen/logrus"
)

// DefaultWaterline is the number of events a relay buffers when no
// waterline is configured.
const DefaultWaterline = 200

// Option configures a Relay at construction time.
type Option func(*options)

type options struct {
	waterline int
	logger    logrus.FieldLogger
	metrics   *Collector
}

func defaultOptions() options {
	return options{
		waterline: DefaultWaterline,
		logger:    discardLogger(),
	}
}

// WithWaterline sets the maximum number of events held for the consumer.
// Events arriving beyond it are routed to overflow listeners.
//
// A negative value is normalized to 0, which buffers nothing: every event
// either goes straight to a waiting consumer or to the overflow listeners.
func WithWaterline(n int) Option {
	return func(o *options) {
		o.waterline = max(n, 0)
	}
}

// WithLogger attaches a logger. Relays are silent by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records delivery counters on c.
func WithMetrics(c *Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
