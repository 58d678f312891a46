// Package config loads courier settings from file, environment and flags.
package config

import (
	"time"
)

// Environment variable handling.
const (
	EnvPrefix     = "COURIER"
	EnvConfigFile = "COURIER_CONFIG"
)

// Config is the full courier configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Send    SendConfig    `mapstructure:"send" yaml:"send"`
	Listen  ListenConfig  `mapstructure:"listen" yaml:"listen"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig selects log level, format and optional file rotation.
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
}

// TLSFiles names identity and trust files shared by both roles.
type TLSFiles struct {
	Cert       string   `mapstructure:"cert" yaml:"cert,omitempty" validate:"required_with=Key,file_exists"`
	Key        string   `mapstructure:"key" yaml:"key,omitempty" validate:"required_with=Cert,file_exists"`
	Passphrase string   `mapstructure:"passphrase" yaml:"passphrase,omitempty"`
	PFX        string   `mapstructure:"pfx" yaml:"pfx,omitempty" validate:"excluded_with=Cert,file_exists"`
	CA         []string `mapstructure:"ca" yaml:"ca,omitempty" validate:"dive,file_exists"`
	Bundles    []string `mapstructure:"bundles" yaml:"bundles,omitempty" validate:"dive,file_exists"`

	// TrustDomain names SPIFFE bundles; it does not restrict peers.
	TrustDomain string `mapstructure:"trust_domain" yaml:"trust_domain,omitempty" validate:"trust_domain"`

	NextProtos []string   `mapstructure:"next_protos" yaml:"next_protos,omitempty"`
	MinVersion TLSVersion `mapstructure:"min_version" yaml:"min_version,omitempty" validate:"tls_version"`
	MaxVersion TLSVersion `mapstructure:"max_version" yaml:"max_version,omitempty" validate:"tls_version"`
}

// SendConfig holds preset material for outbound deliveries.
type SendConfig struct {
	TLS                TLSFiles `mapstructure:"tls" yaml:"tls"`
	ServerName         string   `mapstructure:"server_name" yaml:"server_name,omitempty" validate:"omitempty,hostname_rfc1123|ip"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// ListenConfig holds the receiver binding and its material.
type ListenConfig struct {
	Host string `mapstructure:"host" yaml:"host" validate:"required"`
	Port int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`

	TLS                      TLSFiles      `mapstructure:"tls" yaml:"tls"`
	CRLs                     []string      `mapstructure:"crls" yaml:"crls,omitempty" validate:"dive,file_exists"`
	CipherSuites             []CipherSuite `mapstructure:"cipher_suites" yaml:"cipher_suites,omitempty" validate:"dive,cipher_suite"`
	HandshakeTimeout         time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout" validate:"gte=0"`
	PreferServerCipherSuites bool          `mapstructure:"prefer_server_cipher_suites" yaml:"prefer_server_cipher_suites"`
	RequestClientCert        bool          `mapstructure:"request_client_cert" yaml:"request_client_cert"`
	VerifyClientCert         bool          `mapstructure:"verify_client_cert" yaml:"verify_client_cert"`
}

// MetricsConfig enables the Prometheus endpoint when Address is set.
type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address,omitempty" validate:"omitempty,hostname_port"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Listen: ListenConfig{
			Host:             "localhost",
			Port:             7847,
			HandshakeTimeout: 120 * time.Second,
		},
	}
}
