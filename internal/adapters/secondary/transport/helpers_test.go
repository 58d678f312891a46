package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sufield/courier/internal/core/domain"
	"github.com/sufield/courier/internal/core/ports"
	"github.com/sufield/courier/internal/testing/tlstest"
)

// recorder collects deliveries for assertions.
type recorder struct {
	deliveries chan domain.Delivery
}

func newRecorder() *recorder {
	return &recorder{deliveries: make(chan domain.Delivery, 16)}
}

func (r *recorder) Deliver(_ context.Context, d domain.Delivery) {
	r.deliveries <- d
}

func (r *recorder) next(t *testing.T) domain.Delivery {
	t.Helper()
	select {
	case d := <-r.deliveries:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return domain.Delivery{}
	}
}

func (r *recorder) requireEmpty(t *testing.T) {
	t.Helper()
	select {
	case d := <-r.deliveries:
		t.Fatalf("unexpected delivery: %+v", d)
	default:
	}
}

// fakeMetrics records every call made by the transport.
type fakeMetrics struct {
	mu         sync.Mutex
	sends      []string
	deliveries int
	rejected   []string
	listening  bool
}

func (m *fakeMetrics) RecordSend(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, result)
}

func (m *fakeMetrics) RecordDelivery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries++
}

func (m *fakeMetrics) RecordRejected(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, method)
}

func (m *fakeMetrics) SetListening(listening bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listening = listening
}

func (m *fakeMetrics) snapshot() fakeMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fakeMetrics{
		sends:      append([]string(nil), m.sends...),
		deliveries: m.deliveries,
		rejected:   append([]string(nil), m.rejected...),
		listening:  m.listening,
	}
}

// pki holds one CA with a server and a client identity.
type pki struct {
	ca     *tlstest.Authority
	server tlstest.Leaf
	client tlstest.Leaf
}

func newPKI(t *testing.T) pki {
	t.Helper()
	ca := tlstest.NewAuthority(t, "courier test ca")
	return pki{
		ca:     ca,
		server: ca.Localhost(t, "spiffe://courier.test/receiver"),
		client: ca.Localhost(t, "spiffe://courier.test/sender"),
	}
}

func (p pki) clientMaterial() domain.ClientMaterial {
	return domain.ClientMaterial{
		Material: domain.Material{
			Certificates: []tls.Certificate{p.client.Certificate},
			TrustAnchors: []*x509.Certificate{p.ca.Cert},
		},
	}
}

func (p pki) serverMaterial() domain.ServerMaterial {
	return domain.ServerMaterial{
		Material: domain.Material{
			Certificates: []tls.Certificate{p.server.Certificate},
			TrustAnchors: []*x509.Certificate{p.ca.Cert},
		},
		RequestClientCert: true,
		VerifyClientCert:  true,
	}
}

// httpsClient returns a plain client trusting the test CA.
func (p pki) httpsClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: clientTLSConfig(p.clientMaterial(), "localhost"),
		},
		Timeout: 5 * time.Second,
	}
}

// startReceiver binds a receiver on an ephemeral loopback port.
func startReceiver(t *testing.T, p pki, handler ports.Handler, opts ...ReceiverOption) (*Receiver, domain.Endpoint) {
	t.Helper()

	r := NewReceiver(handler, opts...)
	endpoint, err := r.Listen(context.Background(), ports.ListenRequest{
		Host:     "127.0.0.1",
		Port:     0,
		Material: p.serverMaterial(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.Close(ctx)
	})
	return r, endpoint
}
