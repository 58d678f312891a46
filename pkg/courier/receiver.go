package courier

import (
	"context"

	"github.com/sufield/courier/internal/adapters/secondary/transport"
)

// Receiver accepts deliveries on at most one listening socket.
//
// A Receiver is idle until Listen succeeds and listening until Close has
// drained every in-flight delivery. Listen while listening (or while a Close
// is draining) fails with ErrAlreadyListening; Close while idle fails with
// ErrNotListening. Neither changes state.
//
// The handler runs on the connection's goroutine, once per delivery, after
// the whole body has been read and before the sender sees its 200. Under
// Capabilities the handler runs on the dispatch goroutine instead, and the
// connection waits for it to return before answering. Requests whose target
// is not origin-form are answered with 400 and never delivered.
type Receiver struct {
	impl *transport.Receiver
}

// NewReceiver creates an idle Receiver delivering to handler.
func NewReceiver(handler Handler, opts ...Option) *Receiver {
	o := collect(opts)
	return &Receiver{impl: transport.NewReceiver(handler, o.receiverOptions()...)}
}

// Listen binds req.Host:req.Port with the server material and starts
// accepting connections.
//
// The returned Endpoint holds the bound port, so a request for port 0
// reports the port the system chose. Errors are ErrMissingHost,
// ErrInvalidMaterial, ErrBindFailed or ErrAlreadyListening. A failure of
// the accept loop after a successful Listen returns the Receiver to idle
// and is reported to req.OnError.
func (r *Receiver) Listen(ctx context.Context, req ListenRequest) (Endpoint, error) {
	return r.impl.Listen(ctx, req)
}

// ListenAsync is Listen on its own goroutine.
func (r *Receiver) ListenAsync(ctx context.Context, req ListenRequest) <-chan Result[Endpoint] {
	return async(func() (Endpoint, error) {
		return r.Listen(ctx, req)
	})
}

// Close stops accepting immediately and returns once in-flight deliveries
// have finished. If ctx ends first the remaining connections are closed
// and ctx.Err() is returned; the Receiver still becomes idle.
func (r *Receiver) Close(ctx context.Context) error {
	return r.impl.Close(ctx)
}

// CloseAsync is Close on its own goroutine.
func (r *Receiver) CloseAsync(ctx context.Context) <-chan Result[struct{}] {
	return async(func() (struct{}, error) {
		return struct{}{}, r.Close(ctx)
	})
}

// Endpoint returns the bound endpoint and whether the Receiver is listening.
func (r *Receiver) Endpoint() (Endpoint, bool) {
	return r.impl.Endpoint()
}
