package transport

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
	"github.com/sufield/courier/internal/core/ports"
)

// binding is one bound listening socket and the server accepting on it.
type binding struct {
	endpoint domain.Endpoint
	listener net.Listener
	server   *http.Server

	// served is closed when the accept loop returns.
	served chan struct{}
	// drained is closed once a Close has released every connection.
	drained      chan struct{}
	shutdownOnce sync.Once
}

// bind opens the TLS listener for req. Nothing is retained on failure.
func (r *Receiver) bind(ctx context.Context, req ports.ListenRequest) (*binding, error) {
	tlsCfg, err := serverTLSConfig(req.Material)
	if err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(req.Host, strconv.Itoa(req.Port)))
	if err != nil {
		return nil, coreErrors.NewDomainError(coreErrors.ErrBindFailed, err)
	}

	port := req.Port
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}
	endpoint := domain.Endpoint{Host: req.Host, Port: port}

	handshakeTimeout := req.Material.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}

	b := &binding{
		endpoint: endpoint,
		listener: tls.NewListener(ln, tlsCfg),
		served:   make(chan struct{}),
		drained:  make(chan struct{}),
	}
	b.server = &http.Server{
		Handler:           r.deliveryHandler(endpoint),
		ReadHeaderTimeout: handshakeTimeout,
		ErrorLog:          slog.NewLogLogger(r.logger.Handler(), slog.LevelDebug),
		// HTTP/1.1 only: the wire contract relies on chunked request bodies.
		TLSNextProto: map[string]func(*http.Server, *tls.Conn, http.Handler){},
	}
	return b, nil
}

// AbortDelivery ends the current delivery without answering, closing its
// connection so the sender sees a transport failure. Only a Handler may
// call it.
func AbortDelivery() {
	panic(http.ErrAbortHandler)
}

// deliveryHandler turns each POST into one Delivery for the registered handler.
func (r *Receiver) deliveryHandler(endpoint domain.Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			r.metrics.RecordRejected(req.Method)
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Only origin-form targets map onto an address at this endpoint.
		if !strings.HasPrefix(req.RequestURI, "/") {
			r.metrics.RecordRejected(req.Method)
			r.logger.Debug("inbound target not origin-form", "remote", req.RemoteAddr, "target", req.RequestURI)
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(req.Body)
		if err != nil {
			// The client never finished the body; there is nothing to deliver.
			r.logger.Debug("inbound body incomplete", "remote", req.RemoteAddr, "error", err)
			panic(http.ErrAbortHandler)
		}

		delivery := domain.Delivery{
			ID:      uuid.NewString(),
			Address: domain.FormatAddress(endpoint.Host, endpoint.Port, req.RequestURI),
			Content: string(body),
			PeerID:  peerID(req.TLS),
		}
		r.handler.Deliver(req.Context(), delivery)
		r.metrics.RecordDelivery()
		r.logger.Debug("delivery received",
			"delivery_id", delivery.ID,
			"endpoint", endpoint.String(),
			"bytes", len(body),
			"peer", delivery.PeerID,
		)

		w.WriteHeader(http.StatusOK)
	})
}
