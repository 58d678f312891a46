// Package domain provides the value objects exchanged by the courier transport.
package domain

import (
	"net"
	"net/url"
	"strconv"

	coreErrors "github.com/sufield/courier/internal/core/errors"
)

// SecureScheme is the only scheme accepted for delivery addresses.
const SecureScheme = "https"

// Address is a delivery address resolved into connection coordinates.
type Address struct {
	Scheme   string
	Hostname string
	Port     string
	Path     string
	RawQuery string
	Fragment string

	forceQuery bool
}

// ParseAddress validates raw and resolves it into an Address.
//
// Checks run in a fixed order and the first failure is returned:
// missing address, non-https scheme, missing host, missing port.
func ParseAddress(raw string) (Address, error) {
	if raw == "" {
		return Address{}, coreErrors.ErrMissingAddress
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, coreErrors.NewValidationError("address", raw, err.Error())
	}

	if u.Scheme != SecureScheme {
		return Address{}, &coreErrors.InvalidProtocolError{Scheme: u.Scheme}
	}
	if u.Hostname() == "" {
		return Address{}, coreErrors.ErrMissingHost
	}
	if u.Port() == "" {
		return Address{}, coreErrors.ErrMissingPort
	}

	return Address{
		Scheme:     u.Scheme,
		Hostname:   u.Hostname(),
		Port:       u.Port(),
		Path:       u.EscapedPath(),
		RawQuery:   u.RawQuery,
		Fragment:   u.EscapedFragment(),
		forceQuery: u.ForceQuery,
	}, nil
}

// HostPort returns the dial address.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Hostname, a.Port)
}

// Target returns the request target sent on the wire. The fragment is
// kept and appended after the path and query.
func (a Address) Target() string {
	target := a.Path
	if target == "" {
		target = "/"
	}
	if a.forceQuery || a.RawQuery != "" {
		target += "?" + a.RawQuery
	}
	if a.Fragment != "" {
		target += "#" + a.Fragment
	}
	return target
}

// String rebuilds the canonical address.
func (a Address) String() string {
	return a.Scheme + "://" + a.HostPort() + a.Target()
}

// FormatAddress builds the canonical address of a delivery received on
// host:port with the given request target.
func FormatAddress(host string, port int, target string) string {
	return SecureScheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + target
}
