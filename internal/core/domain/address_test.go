package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreErrors "github.com/sufield/courier/internal/core/errors"
)

func TestParseAddress_ValidationOrder(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty address", input: "", wantErr: coreErrors.ErrMissingAddress},
		{name: "missing host", input: "https://:4000", wantErr: coreErrors.ErrMissingHost},
		{name: "missing port", input: "https://localhost", wantErr: coreErrors.ErrMissingPort},
		{name: "trailing colon has no port", input: "https://localhost:", wantErr: coreErrors.ErrMissingPort},
		{name: "missing host reported before missing port", input: "https:///path", wantErr: coreErrors.ErrMissingHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestParseAddress_InvalidProtocol(t *testing.T) {
	tests := []struct {
		input      string
		wantScheme string
	}{
		{input: "foo://bar.com", wantScheme: "foo"},
		{input: "http://localhost:8080/", wantScheme: "http"},
		{input: "HTTP://localhost:8080/", wantScheme: "http"},
		{input: "localhost:7847", wantScheme: "localhost"},
		{input: "/relative/path", wantScheme: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseAddress(tt.input)

			var ipe *coreErrors.InvalidProtocolError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tt.wantScheme, ipe.Scheme)
		})
	}
}

func TestParseAddress_SchemeCheckedBeforeHost(t *testing.T) {
	_, err := ParseAddress("ftp://:21")

	var ipe *coreErrors.InvalidProtocolError
	assert.ErrorAs(t, err, &ipe)
	assert.False(t, errors.Is(err, coreErrors.ErrMissingHost))
}

func TestParseAddress_Unparseable(t *testing.T) {
	_, err := ParseAddress("https://[::1")

	var ve *coreErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "address", ve.Field)
}

func TestAddress_Target(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantTarget string
		wantHost   string
	}{
		{
			name:       "fragment kept after root path",
			input:      "https://localhost:7847/#tok",
			wantTarget: "/#tok",
			wantHost:   "localhost:7847",
		},
		{
			name:       "empty path becomes root",
			input:      "https://localhost:7847",
			wantTarget: "/",
			wantHost:   "localhost:7847",
		},
		{
			name:       "query precedes fragment",
			input:      "https://example.net:443/inbox?v=1#cap",
			wantTarget: "/inbox?v=1#cap",
			wantHost:   "example.net:443",
		},
		{
			name:       "fragment with base64 characters is not re-escaped",
			input:      "https://localhost:7847/#t5YM5nxnJ/xkPTo3gtHEyLdwMRFIwyJOv5kvcFs+FoMGdyoDNgSLolq0",
			wantTarget: "/#t5YM5nxnJ/xkPTo3gtHEyLdwMRFIwyJOv5kvcFs+FoMGdyoDNgSLolq0",
			wantHost:   "localhost:7847",
		},
		{
			name:       "ipv6 host",
			input:      "https://[::1]:9000/a",
			wantTarget: "/a",
			wantHost:   "[::1]:9000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, addr.Target())
			assert.Equal(t, tt.wantHost, addr.HostPort())
		})
	}
}

func TestAddress_StringRoundTrip(t *testing.T) {
	raw := "https://localhost:7847/#tok"

	addr, err := ParseAddress(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, addr.String())
	assert.Equal(t, raw, FormatAddress(addr.Hostname, 7847, addr.Target()))
}

func TestEndpoint_String(t *testing.T) {
	assert.Equal(t, "localhost:7847", Endpoint{Host: "localhost", Port: 7847}.String())
	assert.Equal(t, "[::1]:80", Endpoint{Host: "::1", Port: 80}.String())
}
