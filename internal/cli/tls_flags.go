package cli

import (
	"github.com/spf13/pflag"
)

// addTLSFlags registers identity and trust flags and returns their bindings
// under the given configuration prefix, e.g. "send.tls".
func addTLSFlags(flags *pflag.FlagSet, prefix string) map[string]string {
	flags.String("cert", "", "PEM certificate chain")
	flags.String("key", "", "PEM private key")
	flags.String("pfx", "", "PKCS#12 identity, instead of --cert and --key")
	flags.StringSlice("ca", nil, "PEM CA bundle to trust (repeatable)")
	flags.StringSlice("bundle", nil, "SPIFFE trust bundle document to trust (repeatable)")
	flags.String("trust-domain", "", "trust domain used to read bundles")
	flags.String("min-tls-version", "", "minimum TLS version, e.g. 1.2")
	flags.String("max-tls-version", "", "maximum TLS version")

	return map[string]string{
		prefix + ".cert":         "cert",
		prefix + ".key":          "key",
		prefix + ".pfx":          "pfx",
		prefix + ".ca":           "ca",
		prefix + ".bundles":      "bundle",
		prefix + ".trust_domain": "trust-domain",
		prefix + ".min_version":  "min-tls-version",
		prefix + ".max_version":  "max-tls-version",
	}
}
