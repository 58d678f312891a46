package courier

import (
	"log/slog"

	"github.com/sufield/courier/internal/adapters/metrics"
	"github.com/sufield/courier/internal/adapters/secondary/transport"
)

// Option configures a Sender, Receiver or Capabilities.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   MetricsReporter
	preset    ClientMaterial
	hasPreset bool
}

// WithLogger sets the logger. Sensitive attributes are not redacted here;
// pass a logger built on a redacting handler when logging to shared sinks.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets a custom metrics reporter.
func WithMetrics(m MetricsReporter) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPrometheusMetrics reports to the default Prometheus registry.
func WithPrometheusMetrics() Option {
	return func(o *options) {
		o.metrics = metrics.NewPrometheusMetrics()
	}
}

// WithPresetMaterial sets client material applied to every send. Fields
// set on the preset override the same fields on each request.
func WithPresetMaterial(m ClientMaterial) Option {
	return func(o *options) {
		o.preset = m
		o.hasPreset = true
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) senderOptions() []transport.SenderOption {
	out := []transport.SenderOption{
		transport.WithSenderLogger(o.logger),
		transport.WithSenderMetrics(o.metrics),
	}
	if o.hasPreset {
		out = append(out, transport.WithPresetMaterial(o.preset))
	}
	return out
}

func (o options) receiverOptions() []transport.ReceiverOption {
	return []transport.ReceiverOption{
		transport.WithReceiverLogger(o.logger),
		transport.WithReceiverMetrics(o.metrics),
	}
}
