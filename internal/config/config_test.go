package config

import (
	"bytes"
	"crypto/tls"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/courier/internal/adapters/secondary/material"
	coreErrors "github.com/sufield/courier/internal/core/errors"
	"github.com/sufield/courier/internal/testing/tlstest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default().Log, cfg.Log)
	assert.Equal(t, "localhost", cfg.Listen.Host)
	assert.Equal(t, 7847, cfg.Listen.Port)
	assert.Empty(t, cfg.Listen.CipherSuites)
	assert.Empty(t, cfg.Send.TLS.CA)
	assert.Equal(t, 120*time.Second, cfg.Listen.HandshakeTimeout)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
send:
  server_name: receiver.courier.test
  tls:
    min_version: "1.2"
    max_version: TLSv1.3
listen:
  host: 0.0.0.0
  port: 8443
  handshake_timeout: 30s
  request_client_cert: true
  verify_client_cert: true
  cipher_suites:
    - TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256
    - TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
metrics:
  address: 127.0.0.1:9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "receiver.courier.test", cfg.Send.ServerName)
	assert.Equal(t, TLSVersion(tls.VersionTLS12), cfg.Send.TLS.MinVersion)
	assert.Equal(t, TLSVersion(tls.VersionTLS13), cfg.Send.TLS.MaxVersion)
	assert.Equal(t, "0.0.0.0", cfg.Listen.Host)
	assert.Equal(t, 8443, cfg.Listen.Port)
	assert.Equal(t, 30*time.Second, cfg.Listen.HandshakeTimeout)
	assert.True(t, cfg.Listen.VerifyClientCert)
	assert.Equal(t, []CipherSuite{
		CipherSuite(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256),
		CipherSuite(tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384),
	}, cfg.Listen.CipherSuites)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Address)
}

func TestLoad_ConfigFileFromEnvironment(t *testing.T) {
	path := writeConfig(t, "listen:\n  port: 9000\n")
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Listen.Port)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen:\n  port: 9000\n")
	t.Setenv("COURIER_LISTEN_PORT", "9443")
	t.Setenv("COURIER_LISTEN_CIPHER_SUITES", "TLS_AES_128_GCM_SHA256,TLS_AES_256_GCM_SHA384")
	t.Setenv("COURIER_SEND_TLS_MIN_VERSION", "tls1.3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9443, cfg.Listen.Port)
	assert.Equal(t, []CipherSuite{
		CipherSuite(tls.TLS_AES_128_GCM_SHA256),
		CipherSuite(tls.TLS_AES_256_GCM_SHA384),
	}, cfg.Listen.CipherSuites)
	assert.Equal(t, TLSVersion(tls.VersionTLS13), cfg.Send.TLS.MinVersion)
}

func TestLoad_FlagsOverrideWhenSet(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	path := writeConfig(t, "listen:\n  host: filehost\n  port: 9000\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("host", "", "")
	require.NoError(t, flags.Parse([]string{"--port=1234"}))

	cfg, err := Load(path, WithFlags(flags, map[string]string{
		"listen.port": "port",
		"listen.host": "host",
		"listen.none": "missing",
	}))
	require.NoError(t, err)

	assert.Equal(t, 1234, cfg.Listen.Port)
	assert.Equal(t, "filehost", cfg.Listen.Host, "unset flags keep the file value")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o600))

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "log level", content: "log:\n  level: loud\n", field: "Config.Log.Level"},
		{name: "log format", content: "log:\n  format: xml\n", field: "Config.Log.Format"},
		{name: "port range", content: "listen:\n  port: 70000\n", field: "Config.Listen.Port"},
		{name: "empty host", content: "listen:\n  host: \"\"\n", field: "Config.Listen.Host"},
		{name: "cert without key", content: "listen:\n  tls:\n    cert: " + existing + "\n", field: "Config.Listen.TLS.Key"},
		{name: "missing ca file", content: "send:\n  tls:\n    ca: [" + filepath.Join(dir, "nope.pem") + "]\n", field: "Config.Send.TLS.CA[0]"},
		{name: "pfx with cert", content: "send:\n  tls:\n    cert: " + existing + "\n    key: " + existing + "\n    pfx: " + existing + "\n", field: "Config.Send.TLS.PFX"},
		{name: "bad trust domain", content: "send:\n  tls:\n    trust_domain: \"Not Valid\"\n", field: "Config.Send.TLS.TrustDomain"},
		{name: "version range", content: "send:\n  tls:\n    min_version: \"1.3\"\n    max_version: \"1.2\"\n", field: "Config.Send.TLS.MaxVersion"},
		{name: "metrics address", content: "metrics:\n  address: nonsense\n", field: "Config.Metrics.Address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			var ve *coreErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_DecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown version": "send:\n  tls:\n    min_version: \"9.9\"\n",
		"unknown cipher":  "listen:\n  cipher_suites: [TLS_NOPE]\n",
		"bad duration":    "listen:\n  handshake_timeout: soon\n",
		"malformed yaml":  "listen: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestCipherSuiteDecodeHook_SplitsList(t *testing.T) {
	hook := CipherSuiteDecodeHook().(func(reflect.Type, reflect.Type, interface{}) (interface{}, error))
	listType := reflect.TypeOf([]CipherSuite(nil))

	got, err := hook(reflect.TypeOf(""), listType, " tls_aes_128_gcm_sha256 , ,TLS_CHACHA20_POLY1305_SHA256")
	require.NoError(t, err)
	assert.Equal(t, []CipherSuite{
		CipherSuite(tls.TLS_AES_128_GCM_SHA256),
		CipherSuite(tls.TLS_CHACHA20_POLY1305_SHA256),
	}, got)

	got, err = hook(reflect.TypeOf(""), listType, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = hook(reflect.TypeOf(""), listType, "TLS_AES_128_GCM_SHA256,TLS_NOPE")
	assert.ErrorContains(t, err, "TLS_NOPE")
}

func TestLoad_EnvironmentUnknownCipherFails(t *testing.T) {
	t.Setenv("COURIER_LISTEN_CIPHER_SUITES", "TLS_AES_128_GCM_SHA256,TLS_NOPE")

	_, err := Load(writeConfig(t, "listen:\n  port: 9000\n"))
	assert.Error(t, err)
}

func TestParseTLSVersion(t *testing.T) {
	for _, name := range []string{"1.2", "TLS1.2", "tlsv1.2", "TLS 1.2", "1_2"} {
		v, err := ParseTLSVersion(name)
		require.NoError(t, err, name)
		assert.Equal(t, TLSVersion(tls.VersionTLS12), v, name)
	}

	_, err := ParseTLSVersion("SSLv3")
	assert.Error(t, err)
	assert.Equal(t, "TLS 1.3", TLSVersion(tls.VersionTLS13).String())
	assert.Empty(t, TLSVersion(0).String())
}

func TestMaterialConversion(t *testing.T) {
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, "config ca")
	leaf := ca.Localhost(t, "")
	_, crlPEM := ca.RevocationList(t)

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}
	files := TLSFiles{
		Cert:       write("cert.pem", leaf.CertPEM),
		Key:        write("key.pem", leaf.KeyPEM),
		CA:         []string{write("ca.pem", ca.CertPEM)},
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"http/1.1"},
	}
	loader := material.NewLoader(nil)

	client, err := SendConfig{TLS: files, ServerName: "localhost"}.ClientMaterial(loader)
	require.NoError(t, err)
	assert.Len(t, client.Certificates, 1)
	assert.Len(t, client.TrustAnchors, 1)
	assert.Equal(t, "localhost", client.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), client.MinVersion)
	assert.Equal(t, []string{"http/1.1"}, client.NextProtos)

	server, err := ListenConfig{
		TLS:               files,
		CRLs:              []string{write("crl.pem", crlPEM)},
		CipherSuites:      []CipherSuite{CipherSuite(tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256)},
		HandshakeTimeout:  time.Second,
		RequestClientCert: true,
		VerifyClientCert:  true,
	}.ServerMaterial(loader)
	require.NoError(t, err)
	assert.Len(t, server.Certificates, 1)
	assert.Len(t, server.RevocationLists, 1)
	assert.Equal(t, []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256}, server.CipherSuites)
	assert.Equal(t, tls.RequireAndVerifyClientCert, server.ClientAuth())

	_, err = SendConfig{TLS: TLSFiles{PFX: filepath.Join(dir, "missing.p12")}}.ClientMaterial(loader)
	assert.ErrorIs(t, err, coreErrors.ErrInvalidMaterial)
}

func TestWriteYAML(t *testing.T) {
	cfg := Default()
	cfg.Send.TLS.Passphrase = "hunter2"
	cfg.Send.TLS.MinVersion = tls.VersionTLS13
	cfg.Listen.CipherSuites = []CipherSuite{CipherSuite(tls.TLS_AES_128_GCM_SHA256)}

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, redactedPassphrase)
	assert.Contains(t, out, "min_version: TLS 1.3")
	assert.Contains(t, out, "- TLS_AES_128_GCM_SHA256")
	assert.Contains(t, out, "handshake_timeout: 2m0s")
	assert.Equal(t, "hunter2", cfg.Send.TLS.Passphrase, "the receiver is not modified")
}
