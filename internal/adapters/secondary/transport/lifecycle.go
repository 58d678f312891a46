package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
	"github.com/sufield/courier/internal/core/ports"
)

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithReceiverLogger sets the receiver's logger.
func WithReceiverLogger(logger *slog.Logger) ReceiverOption {
	return func(r *Receiver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReceiverMetrics sets the receiver's metrics reporter.
func WithReceiverMetrics(m ports.MetricsReporter) ReceiverOption {
	return func(r *Receiver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Receiver owns at most one listening socket and forwards every inbound
// delivery to its handler.
//
// It is idle until Listen succeeds and listening until a Close drains it.
// A Listen while bound (including while a Close is draining) and a Close
// while idle change nothing and report ErrAlreadyListening and
// ErrNotListening respectively.
type Receiver struct {
	handler ports.Handler
	logger  *slog.Logger
	metrics ports.MetricsReporter

	mu      sync.Mutex
	current *binding
}

var _ ports.ReceiverPort = (*Receiver)(nil)

// NewReceiver creates an idle Receiver delivering to handler.
func NewReceiver(handler ports.Handler, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		handler: handler,
		logger:  slog.Default(),
		metrics: ports.NoOpMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Listen binds req.Host:req.Port and starts accepting. The returned
// endpoint carries the bound port, which differs from req.Port when it is 0.
func (r *Receiver) Listen(ctx context.Context, req ports.ListenRequest) (domain.Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return r.current.endpoint, coreErrors.ErrAlreadyListening
	}

	b, err := r.bind(ctx, req)
	if err != nil {
		return domain.Endpoint{}, err
	}
	r.current = b
	r.metrics.SetListening(true)

	go r.serve(b, req.OnError)

	r.logger.Info("receiver listening", "endpoint", b.endpoint.String())
	return b.endpoint, nil
}

// serve runs the accept loop of b. An accept failure other than a
// requested shutdown releases the binding and is reported to onError.
func (r *Receiver) serve(b *binding, onError func(error)) {
	err := b.server.Serve(b.listener)
	close(b.served)
	if errors.Is(err, http.ErrServerClosed) {
		return
	}

	_ = b.server.Close()
	r.release(b)
	r.logger.Error("receiver stopped accepting", "endpoint", b.endpoint.String(), "error", err)
	if onError != nil {
		onError(err)
	}
}

// Close stops accepting immediately and waits until in-flight deliveries
// finish. When ctx ends first the remaining connections are closed
// forcibly and ctx.Err() is returned. Concurrent calls share one drain.
func (r *Receiver) Close(ctx context.Context) error {
	r.mu.Lock()
	b := r.current
	r.mu.Unlock()

	if b == nil {
		return coreErrors.ErrNotListening
	}

	b.shutdownOnce.Do(func() {
		go r.drain(ctx, b)
	})

	select {
	case <-b.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Receiver) drain(ctx context.Context, b *binding) {
	if err := b.server.Shutdown(ctx); err != nil {
		_ = b.server.Close()
	}
	<-b.served
	r.release(b)
	close(b.drained)
	r.logger.Info("receiver closed", "endpoint", b.endpoint.String())
}

// release returns the receiver to idle if b is still its binding.
func (r *Receiver) release(b *binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == b {
		r.current = nil
		r.metrics.SetListening(false)
	}
}

// Endpoint returns the bound endpoint and whether the receiver is listening.
func (r *Receiver) Endpoint() (domain.Endpoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return domain.Endpoint{}, false
	}
	return r.current.endpoint, true
}
