package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Option adjusts the viper instance before the configuration is read.
type Option func(v *viper.Viper) error

// WithFlags binds command-line flags to configuration keys. Only flags the
// user actually set take precedence over file and environment values.
func WithFlags(flags *pflag.FlagSet, bindings map[string]string) Option {
	return func(v *viper.Viper) error {
		for key, name := range bindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
		return nil
	}
}

// Load reads configuration from path when non-empty, otherwise from
// $COURIER_CONFIG or courier.yaml in the usual locations. Environment
// variables use the COURIER prefix with `.` and `-` replaced by `_`,
// e.g. COURIER_LISTEN_PORT=8443.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	seedDefaults(v, cfg)

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("courier")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".courier"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		TLSVersionDecodeHook(),
		CipherSuiteDecodeHook(),
	))
	if err := v.Unmarshal(cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// seedDefaults registers every key so env-only configurations decode.
func seedDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)

	seedTLSDefaults(v, "send.tls")
	v.SetDefault("send.server_name", cfg.Send.ServerName)
	v.SetDefault("send.insecure_skip_verify", cfg.Send.InsecureSkipVerify)

	v.SetDefault("listen.host", cfg.Listen.Host)
	v.SetDefault("listen.port", cfg.Listen.Port)
	seedTLSDefaults(v, "listen.tls")
	v.SetDefault("listen.crls", []string{})
	v.SetDefault("listen.cipher_suites", []string{})
	v.SetDefault("listen.handshake_timeout", cfg.Listen.HandshakeTimeout)
	v.SetDefault("listen.prefer_server_cipher_suites", cfg.Listen.PreferServerCipherSuites)
	v.SetDefault("listen.request_client_cert", cfg.Listen.RequestClientCert)
	v.SetDefault("listen.verify_client_cert", cfg.Listen.VerifyClientCert)

	v.SetDefault("metrics.address", cfg.Metrics.Address)
}

func seedTLSDefaults(v *viper.Viper, prefix string) {
	for _, key := range []string{"cert", "key", "passphrase", "pfx", "trust_domain", "min_version", "max_version"} {
		v.SetDefault(prefix+"."+key, "")
	}
	for _, key := range []string{"ca", "bundles", "next_protos"} {
		v.SetDefault(prefix+"."+key, []string{})
	}
}
