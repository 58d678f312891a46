package domain

import (
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Material is TLS material common to both roles. Every field is optional.
type Material struct {
	// Certificates is the local identity: key, certificate chain and any
	// passphrase or PKCS#12 container already resolved.
	Certificates []tls.Certificate
	// TrustAnchors are the CA certificates the peer must chain to.
	// Empty means the system pool.
	TrustAnchors []*x509.Certificate
	// NextProtos is the ALPN protocol list.
	NextProtos []string
	// MinVersion and MaxVersion pin the negotiated protocol version.
	MinVersion uint16
	MaxVersion uint16
}

// ClientMaterial is the material a sender may carry.
type ClientMaterial struct {
	Material
	// ServerName overrides the name used for SNI and certificate verification.
	ServerName string
	// InsecureSkipVerify disables peer verification. The zero value verifies.
	InsecureSkipVerify bool
}

// Merge returns m with every field that preset sets taken from preset.
func (m ClientMaterial) Merge(preset ClientMaterial) ClientMaterial {
	out := m
	out.Material = m.Material.merge(preset.Material)
	if preset.ServerName != "" {
		out.ServerName = preset.ServerName
	}
	if preset.InsecureSkipVerify {
		out.InsecureSkipVerify = true
	}
	return out
}

func (m Material) merge(preset Material) Material {
	out := m
	if len(preset.Certificates) > 0 {
		out.Certificates = preset.Certificates
	}
	if len(preset.TrustAnchors) > 0 {
		out.TrustAnchors = preset.TrustAnchors
	}
	if len(preset.NextProtos) > 0 {
		out.NextProtos = preset.NextProtos
	}
	if preset.MinVersion != 0 {
		out.MinVersion = preset.MinVersion
	}
	if preset.MaxVersion != 0 {
		out.MaxVersion = preset.MaxVersion
	}
	return out
}

// ServerMaterial is the material a receiver listens with.
type ServerMaterial struct {
	Material
	// RevocationLists reject peers whose certificate serial is revoked.
	RevocationLists []*x509.RevocationList
	// CipherSuites restricts TLS 1.0-1.2 suites. Empty means Go defaults.
	CipherSuites []uint16
	// HandshakeTimeout bounds the TLS handshake of each inbound connection.
	HandshakeTimeout time.Duration
	// PreferServerCipherSuites is kept for configuration parity; crypto/tls
	// ignores it since Go 1.18.
	PreferServerCipherSuites bool
	// RequestClientCert asks the peer for a certificate.
	RequestClientCert bool
	// VerifyClientCert rejects peers whose certificate does not verify.
	// It only applies together with RequestClientCert.
	VerifyClientCert bool
}

// ClientAuth maps the request/verify flags to a tls.ClientAuthType.
func (m ServerMaterial) ClientAuth() tls.ClientAuthType {
	switch {
	case m.RequestClientCert && m.VerifyClientCert:
		return tls.RequireAndVerifyClientCert
	case m.RequestClientCert:
		return tls.RequestClientCert
	default:
		return tls.NoClientCert
	}
}

// IsRevoked reports whether cert appears on any configured revocation list
// issued by its issuer.
func (m ServerMaterial) IsRevoked(cert *x509.Certificate) bool {
	for _, crl := range m.RevocationLists {
		if crl.Issuer.String() != cert.Issuer.String() {
			continue
		}
		for _, entry := range crl.RevokedCertificateEntries {
			if entry.SerialNumber != nil && entry.SerialNumber.Cmp(cert.SerialNumber) == 0 {
				return true
			}
		}
	}
	return false
}
