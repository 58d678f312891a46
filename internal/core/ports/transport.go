package ports

import (
	"context"
	"time"

	"github.com/sufield/courier/internal/core/domain"
)

// SendRequest is one payload addressed to a remote receiver.
type SendRequest struct {
	Address  string
	Content  string
	Material domain.ClientMaterial
}

// ListenRequest describes the socket a receiver binds.
type ListenRequest struct {
	Host     string
	Port     int
	Material domain.ServerMaterial
	// OnError receives a fatal accept-loop error after a successful bind.
	// The receiver is back to idle by the time it is called.
	OnError func(error)
}

// SenderPort delivers a single payload and reports the outcome.
type SenderPort interface {
	// Send returns nil only when the receiver answered 200.
	Send(ctx context.Context, req SendRequest) error
}

// ReceiverPort owns at most one listening socket.
type ReceiverPort interface {
	// Listen binds and starts accepting. It fails with ErrAlreadyListening
	// without touching the socket when one is already bound.
	Listen(ctx context.Context, req ListenRequest) (domain.Endpoint, error)
	// Close stops accepting and waits for in-flight deliveries. It fails
	// with ErrNotListening when nothing is bound.
	Close(ctx context.Context) error
}

// Handler receives every complete inbound delivery.
type Handler interface {
	Deliver(ctx context.Context, d domain.Delivery)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, d domain.Delivery)

// Deliver calls f(ctx, d).
func (f HandlerFunc) Deliver(ctx context.Context, d domain.Delivery) {
	f(ctx, d)
}

// MetricsReporter records transport activity.
type MetricsReporter interface {
	RecordSend(result string, duration time.Duration)
	RecordDelivery()
	RecordRejected(method string)
	SetListening(listening bool)
}

// Send results reported to MetricsReporter.RecordSend.
const (
	SendResultOK         = "ok"
	SendResultInvalid    = "invalid"
	SendResultStatus     = "status"
	SendResultConnection = "connection"
)

// NoOpMetrics implements MetricsReporter with no-op methods for when metrics are disabled
type NoOpMetrics struct{}

// RecordSend no-op implementation
func (NoOpMetrics) RecordSend(string, time.Duration) {}

// RecordDelivery no-op implementation
func (NoOpMetrics) RecordDelivery() {}

// RecordRejected no-op implementation
func (NoOpMetrics) RecordRejected(string) {}

// SetListening no-op implementation
func (NoOpMetrics) SetListening(bool) {}
