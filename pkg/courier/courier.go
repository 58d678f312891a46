// Package courier delivers opaque text payloads over mutually authenticated
// HTTPS, addressed by URL.
//
// A Sender posts one payload per call to an https address and reports
// whether the receiver answered 200. A Receiver owns at most one listening
// socket and forwards every inbound payload, together with the address it
// was sent to, to a Handler.
//
// The address fragment travels on the wire, so a receiver can mint
// capability-style addresses such as https://host:7847/#token and tell
// deliveries apart by the token alone:
//
//	receiver := courier.NewReceiver(courier.HandlerFunc(func(ctx context.Context, d courier.Delivery) {
//		fmt.Println(d.Address, d.Content)
//	}))
//	endpoint, err := receiver.Listen(ctx, courier.ListenRequest{
//		Host:     "localhost",
//		Port:     7847,
//		Material: serverMaterial,
//	})
//
//	err = courier.NewSender().Send(ctx, courier.SendRequest{
//		Address:  "https://localhost:7847/#tok",
//		Content:  `{"a":1}`,
//		Material: clientMaterial,
//	})
//
// Every operation also has an asynchronous form returning a channel that
// yields exactly one Result, and Capabilities offers the same operations as
// fire-and-forget messages with OK/Fail continuations.
package courier

import (
	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
	"github.com/sufield/courier/internal/core/ports"
)

// Public data types.
type (
	// Material is the security material shared by both roles.
	Material = domain.Material
	// ClientMaterial configures outbound TLS.
	ClientMaterial = domain.ClientMaterial
	// ServerMaterial configures the listening TLS socket.
	ServerMaterial = domain.ServerMaterial

	// SendRequest is one payload addressed to a remote receiver.
	SendRequest = ports.SendRequest
	// ListenRequest describes where and how a Receiver binds.
	ListenRequest = ports.ListenRequest

	// Endpoint is the host and bound port of a listening Receiver.
	Endpoint = domain.Endpoint
	// Delivery is one inbound payload and the address it was sent to.
	Delivery = domain.Delivery

	// Handler receives inbound deliveries.
	Handler = ports.Handler
	// HandlerFunc adapts a function to Handler.
	HandlerFunc = ports.HandlerFunc
	// MetricsReporter records transport activity.
	MetricsReporter = ports.MetricsReporter
)

// Errors returned by courier operations. Use errors.Is to match the
// sentinels and errors.As for the typed errors.
var (
	ErrMissingAddress   = coreErrors.ErrMissingAddress
	ErrMissingHost      = coreErrors.ErrMissingHost
	ErrMissingPort      = coreErrors.ErrMissingPort
	ErrConnectionFailed = coreErrors.ErrConnectionFailed
	ErrBindFailed       = coreErrors.ErrBindFailed
	ErrAlreadyListening = coreErrors.ErrAlreadyListening
	ErrNotListening     = coreErrors.ErrNotListening
	ErrInvalidMaterial  = coreErrors.ErrInvalidMaterial
)

type (
	// InvalidProtocolError reports an address whose scheme is not https.
	InvalidProtocolError = coreErrors.InvalidProtocolError
	// StatusError reports a receiver that answered with a status other than 200.
	StatusError = coreErrors.StatusError
)

// IsStatus reports whether err is a StatusError carrying code.
func IsStatus(err error, code int) bool {
	return coreErrors.IsStatus(err, code)
}
