// Package transport implements the HTTPS sender and receiver.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/spiffe/go-spiffe/v2/svid/x509svid"

	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
)

// DefaultHandshakeTimeout bounds inbound TLS handshakes when the listen
// material does not set one.
const DefaultHandshakeTimeout = 120 * time.Second

// clientTLSConfig derives the outbound TLS configuration. hostname is the
// resolved address host, used for SNI unless the material overrides it.
func clientTLSConfig(m domain.ClientMaterial, hostname string) *tls.Config {
	cfg := &tls.Config{
		Certificates:       m.Certificates,
		NextProtos:         m.NextProtos,
		MinVersion:         m.MinVersion,
		MaxVersion:         m.MaxVersion,
		ServerName:         hostname,
		InsecureSkipVerify: m.InsecureSkipVerify, //nolint:gosec // caller opted out of peer verification
	}
	if m.ServerName != "" {
		cfg.ServerName = m.ServerName
	}
	if len(m.TrustAnchors) > 0 {
		cfg.RootCAs = certPool(m.TrustAnchors)
	}
	return cfg
}

// serverTLSConfig derives the listening TLS configuration.
func serverTLSConfig(m domain.ServerMaterial) (*tls.Config, error) {
	if len(m.Certificates) == 0 {
		return nil, coreErrors.NewDomainError(coreErrors.ErrInvalidMaterial,
			fmt.Errorf("listening requires a server certificate"))
	}

	cfg := &tls.Config{
		Certificates:             m.Certificates,
		NextProtos:               m.NextProtos,
		MinVersion:               m.MinVersion,
		MaxVersion:               m.MaxVersion,
		CipherSuites:             m.CipherSuites,
		PreferServerCipherSuites: m.PreferServerCipherSuites, //nolint:staticcheck // kept for configuration parity
		ClientAuth:               m.ClientAuth(),
	}
	if len(m.TrustAnchors) > 0 {
		cfg.ClientCAs = certPool(m.TrustAnchors)
	}
	if len(m.RevocationLists) > 0 {
		cfg.VerifyPeerCertificate = revocationCheck(m)
	}
	return cfg, nil
}

func revocationCheck(m domain.ServerMaterial) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return nil
		}
		leaf, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("failed to parse peer certificate: %w", err)
		}
		if m.IsRevoked(leaf) {
			return fmt.Errorf("peer certificate %s is revoked", leaf.SerialNumber)
		}
		return nil
	}
}

func certPool(certs []*x509.Certificate) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool
}

// peerID returns the SPIFFE ID of the verified peer leaf, or "" when the
// peer certificate is absent, unverified or carries no SPIFFE ID.
func peerID(state *tls.ConnectionState) string {
	if state == nil || len(state.VerifiedChains) == 0 || len(state.PeerCertificates) == 0 {
		return ""
	}
	id, err := x509svid.IDFromCert(state.PeerCertificates[0])
	if err != nil {
		return ""
	}
	return id.String()
}
