package config

import (
	"github.com/sufield/courier/internal/adapters/secondary/material"
	"github.com/sufield/courier/internal/core/domain"
)

func (f TLSFiles) files(crls []string) material.Files {
	return material.Files{
		CertFile:    f.Cert,
		KeyFile:     f.Key,
		Passphrase:  f.Passphrase,
		PFXFile:     f.PFX,
		CAFiles:     f.CA,
		BundleFiles: f.Bundles,
		TrustDomain: f.TrustDomain,
		CRLFiles:    crls,
	}
}

func (f TLSFiles) apply(m *domain.Material) {
	m.NextProtos = f.NextProtos
	m.MinVersion = uint16(f.MinVersion)
	m.MaxVersion = uint16(f.MaxVersion)
}

// ClientMaterial loads the preset material for outbound deliveries.
func (c SendConfig) ClientMaterial(loader *material.Loader) (domain.ClientMaterial, error) {
	m, _, err := loader.Load(c.TLS.files(nil))
	if err != nil {
		return domain.ClientMaterial{}, err
	}
	c.TLS.apply(&m)

	return domain.ClientMaterial{
		Material:           m,
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}, nil
}

// ServerMaterial loads the material presented by the receiver.
func (c ListenConfig) ServerMaterial(loader *material.Loader) (domain.ServerMaterial, error) {
	m, crls, err := loader.Load(c.TLS.files(c.CRLs))
	if err != nil {
		return domain.ServerMaterial{}, err
	}
	c.TLS.apply(&m)

	return domain.ServerMaterial{
		Material:                 m,
		RevocationLists:          crls,
		CipherSuites:             cipherSuiteIDs(c.CipherSuites),
		HandshakeTimeout:         c.HandshakeTimeout,
		PreferServerCipherSuites: c.PreferServerCipherSuites,
		RequestClientCert:        c.RequestClientCert,
		VerifyClientCert:         c.VerifyClientCert,
	}, nil
}
