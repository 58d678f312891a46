package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
	"github.com/sufield/courier/internal/core/ports"
)

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithPresetMaterial sets material applied to every request. Fields set on
// the preset override the same fields on the request.
func WithPresetMaterial(m domain.ClientMaterial) SenderOption {
	return func(s *Sender) {
		s.preset = m
	}
}

// WithSenderLogger sets the sender's logger.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSenderMetrics sets the sender's metrics reporter.
func WithSenderMetrics(m ports.MetricsReporter) SenderOption {
	return func(s *Sender) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Sender delivers one payload per call over a fresh TLS connection.
type Sender struct {
	preset  domain.ClientMaterial
	logger  *slog.Logger
	metrics ports.MetricsReporter
}

var _ ports.SenderPort = (*Sender)(nil)

// NewSender creates a Sender.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		logger:  slog.Default(),
		metrics: ports.NoOpMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts req.Content to req.Address and waits for the status.
//
// Invalid addresses fail before any connection is attempted. Status 200
// returns nil; any other status returns *errors.StatusError; network and
// TLS failures are wrapped in ErrConnectionFailed. Nothing is retried and
// no deadline is applied beyond ctx.
func (s *Sender) Send(ctx context.Context, req ports.SendRequest) error {
	start := time.Now()

	addr, err := domain.ParseAddress(req.Address)
	if err == nil {
		err = checkTarget(addr.Target())
	}
	if err != nil {
		s.metrics.RecordSend(ports.SendResultInvalid, time.Since(start))
		return err
	}

	material := req.Material.Merge(s.preset)
	status, err := s.exchange(ctx, addr, material, req.Content)
	if err != nil {
		s.metrics.RecordSend(ports.SendResultConnection, time.Since(start))
		s.logger.Debug("delivery failed", "address", addr.HostPort(), "error", err)
		return coreErrors.NewDomainError(coreErrors.ErrConnectionFailed, err)
	}

	if status != http.StatusOK {
		s.metrics.RecordSend(ports.SendResultStatus, time.Since(start))
		return &coreErrors.StatusError{Code: status}
	}

	s.metrics.RecordSend(ports.SendResultOK, time.Since(start))
	s.logger.Debug("delivery accepted", "address", addr.HostPort(), "bytes", len(req.Content))
	return nil
}

// exchange performs one chunked POST over a fresh TLS connection and
// returns the response status. The request line is written by hand so the
// target goes out in origin-form exactly as the address spells it, fragment
// and leading "//" included.
func (s *Sender) exchange(ctx context.Context, addr domain.Address, material domain.ClientMaterial, content string) (int, error) {
	dialer := &tls.Dialer{Config: clientTLSConfig(material, addr.Hostname)}
	conn, err := dialer.DialContext(ctx, "tcp", addr.HostPort())
	if err != nil {
		return 0, withContextErr(ctx, err)
	}
	defer conn.Close()

	// Unblock pending reads and writes once ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "POST %s HTTP/1.1\r\nHost: %s\r\nTransfer-Encoding: chunked\r\nConnection: close\r\n\r\n",
		addr.Target(), addr.HostPort())
	chunked := httputil.NewChunkedWriter(w)
	if _, err := io.WriteString(chunked, content); err != nil {
		return 0, withContextErr(ctx, err)
	}
	if err := chunked.Close(); err != nil {
		return 0, withContextErr(ctx, err)
	}
	// Empty trailer section.
	if _, err := w.WriteString("\r\n"); err != nil {
		return 0, withContextErr(ctx, err)
	}
	if err := w.Flush(); err != nil {
		return 0, withContextErr(ctx, err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return 0, withContextErr(ctx, err)
	}
	defer resp.Body.Close()

	// The body carries nothing; drain it so the exchange completes.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		s.logger.Debug("failed to drain response body", "address", addr.HostPort(), "error", err)
	}
	return resp.StatusCode, nil
}

// withContextErr attaches ctx's error when ctx ending caused err.
func withContextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return errors.Join(ctxErr, err)
	}
	return err
}

// checkTarget rejects targets that cannot appear in a request line.
func checkTarget(target string) error {
	if strings.ContainsFunc(target, func(r rune) bool {
		return r <= ' ' || r == 0x7f
	}) {
		return coreErrors.NewValidationError("address", target, "request target contains space or control characters")
	}
	return nil
}
