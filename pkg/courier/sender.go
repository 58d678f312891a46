package courier

import (
	"context"

	"github.com/sufield/courier/internal/adapters/secondary/transport"
)

// Sender delivers payloads to remote receivers. Every send uses its own
// connection; a Sender holds no per-send state and is safe for concurrent use.
type Sender struct {
	impl *transport.Sender
}

// NewSender creates a Sender.
//
// Options:
//   - WithPresetMaterial: client material merged into every request
//   - WithLogger, WithMetrics, WithPrometheusMetrics: observability
func NewSender(opts ...Option) *Sender {
	o := collect(opts)
	return &Sender{impl: transport.NewSender(o.senderOptions()...)}
}

// Send posts req.Content to req.Address and waits for the receiver's status.
//
// It succeeds exactly when the receiver answers 200. Errors:
//   - ErrMissingAddress, *InvalidProtocolError, ErrMissingHost, ErrMissingPort:
//     the address was rejected before any connection was attempted
//   - *StatusError: the receiver answered with another status
//   - ErrConnectionFailed: connect, handshake or transfer failed; the
//     underlying error is preserved and reachable with errors.As
//
// Send is bounded only by ctx.
func (s *Sender) Send(ctx context.Context, req SendRequest) error {
	return s.impl.Send(ctx, req)
}

// SendAsync is Send on its own goroutine.
func (s *Sender) SendAsync(ctx context.Context, req SendRequest) <-chan Result[struct{}] {
	return async(func() (struct{}, error) {
		return struct{}{}, s.Send(ctx, req)
	})
}

// Send posts content to address with a default Sender.
func Send(ctx context.Context, address, content string, m ClientMaterial) error {
	return NewSender().Send(ctx, SendRequest{Address: address, Content: content, Material: m})
}
