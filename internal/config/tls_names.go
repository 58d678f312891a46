package config

import (
	"crypto/tls"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// TLSVersion is a protocol version configured by name, e.g. "1.2" or "TLS1.3".
type TLSVersion uint16

// CipherSuite is a cipher suite configured by its IANA name.
type CipherSuite uint16

var tlsVersions = map[string]TLSVersion{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// ParseTLSVersion accepts "1.2", "TLS1.2", "TLSv1.2" and "TLS 1.2" in any case.
func ParseTLSVersion(name string) (TLSVersion, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "TLS")
	n = strings.TrimPrefix(n, "V")
	n = strings.TrimSpace(n)
	n = strings.ReplaceAll(n, "_", ".")
	if v, ok := tlsVersions[n]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown TLS version %q", name)
}

// String returns the version as crypto/tls names it.
func (v TLSVersion) String() string {
	if v == 0 {
		return ""
	}
	return tls.VersionName(uint16(v))
}

// MarshalYAML writes the version name instead of its number.
func (v TLSVersion) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

func (v TLSVersion) known() bool {
	for _, k := range tlsVersions {
		if k == v {
			return true
		}
	}
	return false
}

// ParseCipherSuite looks up a suite by its crypto/tls name.
func ParseCipherSuite(name string) (CipherSuite, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, suites := range [][]*tls.CipherSuite{tls.CipherSuites(), tls.InsecureCipherSuites()} {
		for _, s := range suites {
			if s.Name == n {
				return CipherSuite(s.ID), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown cipher suite %q", name)
}

func (c CipherSuite) String() string {
	return tls.CipherSuiteName(uint16(c))
}

// MarshalYAML writes the suite name instead of its number.
func (c CipherSuite) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c CipherSuite) known() bool {
	_, err := ParseCipherSuite(c.String())
	return err == nil
}

// TLSVersionDecodeHook converts version names to TLSVersion during unmarshalling.
func TLSVersionDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(TLSVersion(0)) {
			return data, nil
		}
		str, ok := data.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return TLSVersion(0), nil
		}
		return ParseTLSVersion(str)
	}
}

// CipherSuiteDecodeHook converts suite names to CipherSuite during
// unmarshalling. A single string decoded into a suite list is split on
// commas, which is how environment variables carry lists.
func CipherSuiteDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		str, ok := data.(string)
		if !ok {
			return data, nil
		}
		switch t {
		case reflect.TypeOf(CipherSuite(0)):
			return ParseCipherSuite(str)
		case reflect.TypeOf([]CipherSuite(nil)):
			return parseCipherSuiteList(str)
		default:
			return data, nil
		}
	}
}

func parseCipherSuiteList(list string) ([]CipherSuite, error) {
	suites := []CipherSuite{}
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := ParseCipherSuite(name)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

func cipherSuiteIDs(suites []CipherSuite) []uint16 {
	if len(suites) == 0 {
		return nil
	}
	ids := make([]uint16, len(suites))
	for i, s := range suites {
		ids[i] = uint16(s)
	}
	return ids
}
