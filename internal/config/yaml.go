package config

import (
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v3"
)

const redactedPassphrase = "[REDACTED]"

// WriteYAML encodes the effective configuration with passphrases redacted.
func (c Config) WriteYAML(w io.Writer) error {
	if c.Send.TLS.Passphrase != "" {
		c.Send.TLS.Passphrase = redactedPassphrase
	}
	if c.Listen.TLS.Passphrase != "" {
		c.Listen.TLS.Passphrase = redactedPassphrase
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush configuration: %w", err)
	}
	return nil
}
