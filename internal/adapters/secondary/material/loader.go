// Package material loads TLS identities, trust anchors and revocation lists from disk.
package material

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spiffe/go-spiffe/v2/bundle/spiffebundle"
	"github.com/spiffe/go-spiffe/v2/bundle/x509bundle"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"golang.org/x/crypto/pkcs12"

	"github.com/sufield/courier/internal/core/domain"
	coreErrors "github.com/sufield/courier/internal/core/errors"
)

// DefaultTrustDomain names bundles loaded without an explicit trust domain.
const DefaultTrustDomain = "courier.local"

// Files names the on-disk material for one role.
type Files struct {
	CertFile   string
	KeyFile    string
	Passphrase string
	// PFXFile holds a PKCS#12 identity and replaces CertFile/KeyFile.
	PFXFile string

	// CAFiles are PEM certificate bundles; BundleFiles are SPIFFE bundle documents.
	CAFiles     []string
	BundleFiles []string
	TrustDomain string

	CRLFiles []string
}

// Loader reads material described by Files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger uses slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load resolves files into material and revocation lists. Empty Files
// yields zero material.
func (l *Loader) Load(files Files) (domain.Material, []*x509.RevocationList, error) {
	var m domain.Material

	switch {
	case files.PFXFile != "":
		cert, err := LoadPKCS12(files.PFXFile, files.Passphrase)
		if err != nil {
			return domain.Material{}, nil, err
		}
		m.Certificates = []tls.Certificate{cert}
	case files.CertFile != "" || files.KeyFile != "":
		cert, err := LoadKeyPair(files.CertFile, files.KeyFile, files.Passphrase)
		if err != nil {
			return domain.Material{}, nil, err
		}
		m.Certificates = []tls.Certificate{cert}
	}

	anchors, err := LoadTrustAnchors(files.TrustDomain, files.CAFiles, files.BundleFiles)
	if err != nil {
		return domain.Material{}, nil, err
	}
	m.TrustAnchors = anchors

	crls, err := LoadRevocationLists(files.CRLFiles...)
	if err != nil {
		return domain.Material{}, nil, err
	}

	l.logger.Debug("security material loaded",
		"identities", len(m.Certificates),
		"trust_anchors", len(m.TrustAnchors),
		"revocation_lists", len(crls),
	)
	return m, crls, nil
}

// LoadKeyPair reads a PEM certificate chain and private key. Legacy
// encrypted keys (Proc-Type headers) are decrypted with passphrase.
func LoadKeyPair(certFile, keyFile, passphrase string) (tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return tls.Certificate{}, invalid(fmt.Errorf("both a certificate and a key file are required"))
	}

	certPEM, err := readFile(certFile)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM, err := readFile(keyFile)
	if err != nil {
		return tls.Certificate{}, err
	}

	keyPEM, err = decryptKey(keyPEM, passphrase)
	if err != nil {
		return tls.Certificate{}, invalid(fmt.Errorf("key %s: %w", keyFile, err))
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, invalid(fmt.Errorf("key pair %s, %s: %w", certFile, keyFile, err))
	}
	return cert, nil
}

func decryptKey(keyPEM []byte, passphrase string) ([]byte, error) {
	rest := keyPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no private key found")
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}

		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, fmt.Errorf("PKCS#8 encrypted keys are not supported, use a PKCS#12 file instead")
		}
		//nolint:staticcheck // legacy PEM encryption is the only passphrase format PEM keys support here
		if !x509.IsEncryptedPEMBlock(block) {
			return pem.EncodeToMemory(block), nil
		}
		if passphrase == "" {
			return nil, fmt.Errorf("key is encrypted and no passphrase was given")
		}
		//nolint:staticcheck // see above
		der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
	}
}

// LoadPKCS12 reads a PKCS#12 file holding one certificate and its key.
func LoadPKCS12(path, passphrase string) (tls.Certificate, error) {
	data, err := readFile(path)
	if err != nil {
		return tls.Certificate{}, err
	}

	key, cert, err := pkcs12.Decode(data, passphrase)
	if err != nil {
		return tls.Certificate{}, invalid(fmt.Errorf("pkcs12 %s: %w", path, err))
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// LoadTrustAnchors reads PEM CA files and SPIFFE bundle documents.
func LoadTrustAnchors(trustDomain string, caFiles, bundleFiles []string) ([]*x509.Certificate, error) {
	if len(caFiles) == 0 && len(bundleFiles) == 0 {
		return nil, nil
	}

	if trustDomain == "" {
		trustDomain = DefaultTrustDomain
	}
	td, err := spiffeid.TrustDomainFromString(trustDomain)
	if err != nil {
		return nil, invalid(fmt.Errorf("trust domain %q: %w", trustDomain, err))
	}

	var anchors []*x509.Certificate
	for _, path := range caFiles {
		bundle, err := x509bundle.Load(td, filepath.Clean(path))
		if err != nil {
			return nil, invalid(fmt.Errorf("ca %s: %w", path, err))
		}
		anchors = append(anchors, bundle.X509Authorities()...)
	}
	for _, path := range bundleFiles {
		bundle, err := spiffebundle.Load(td, filepath.Clean(path))
		if err != nil {
			return nil, invalid(fmt.Errorf("bundle %s: %w", path, err))
		}
		anchors = append(anchors, bundle.X509Authorities()...)
	}
	return anchors, nil
}

// LoadRevocationLists reads CRLs in PEM or DER form.
func LoadRevocationLists(paths ...string) ([]*x509.RevocationList, error) {
	var crls []*x509.RevocationList
	for _, path := range paths {
		data, err := readFile(path)
		if err != nil {
			return nil, err
		}

		ders := [][]byte{data}
		if bytes.Contains(data, []byte("-----BEGIN")) {
			ders = ders[:0]
			for rest := data; ; {
				var block *pem.Block
				block, rest = pem.Decode(rest)
				if block == nil {
					break
				}
				if block.Type == "X509 CRL" {
					ders = append(ders, block.Bytes)
				}
			}
			if len(ders) == 0 {
				return nil, invalid(fmt.Errorf("crl %s: no X509 CRL block", path))
			}
		}

		for _, der := range ders {
			crl, err := x509.ParseRevocationList(der)
			if err != nil {
				return nil, invalid(fmt.Errorf("crl %s: %w", path, err))
			}
			crls = append(crls, crl)
		}
	}
	return crls, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, invalid(fmt.Errorf("failed to read %s: %w", path, err))
	}
	return data, nil
}

func invalid(err error) error {
	return coreErrors.NewDomainError(coreErrors.ErrInvalidMaterial, err)
}
