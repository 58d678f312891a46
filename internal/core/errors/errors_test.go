package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name        string
		domainError *DomainError
		want        string
	}{
		{
			name:        "simple error",
			domainError: ErrMissingPort,
			want:        "MISSING_PORT: missing port",
		},
		{
			name: "error with wrapped error",
			domainError: &DomainError{
				Code:    "CONNECTION_FAILED",
				Message: "failed to establish connection",
				Err:     errors.New("connection refused"),
			},
			want: "CONNECTION_FAILED: failed to establish connection: connection refused",
		},
		{
			name: "empty message",
			domainError: &DomainError{
				Code: "UNKNOWN",
			},
			want: "UNKNOWN: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.domainError.Error(); got != tt.want {
				t.Errorf("DomainError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDomainError_IsMatchesCode(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewDomainError(ErrConnectionFailed, cause)

	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("errors.Is should match the sentinel by code")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if errors.Is(err, ErrBindFailed) {
		t.Error("errors.Is should not match a different code")
	}

	wrapped := fmt.Errorf("send: %w", err)
	if !errors.Is(wrapped, ErrConnectionFailed) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestNewDomainError(t *testing.T) {
	cause := errors.New("address already in use")

	domainErr, ok := NewDomainError(ErrBindFailed, cause).(*DomainError)
	if !ok {
		t.Fatal("NewDomainError should return *DomainError")
	}
	if domainErr.Code != ErrBindFailed.Code {
		t.Errorf("code = %v, want %v", domainErr.Code, ErrBindFailed.Code)
	}
	if domainErr.Err != cause {
		t.Errorf("err = %v, want %v", domainErr.Err, cause)
	}
	if ErrBindFailed.Err != nil {
		t.Error("NewDomainError must not mutate the sentinel")
	}
}

func TestInvalidProtocolError(t *testing.T) {
	err := error(&InvalidProtocolError{Scheme: "foo"})

	var ipe *InvalidProtocolError
	if !errors.As(err, &ipe) {
		t.Fatal("errors.As should extract InvalidProtocolError")
	}
	if ipe.Scheme != "foo" {
		t.Errorf("scheme = %q, want %q", ipe.Scheme, "foo")
	}
	if got, want := err.Error(), `INVALID_PROTOCOL: invalid protocol "foo"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsStatus(t *testing.T) {
	err := fmt.Errorf("deliver: %w", &StatusError{Code: 503})

	if !IsStatus(err, 503) {
		t.Error("IsStatus should match the wrapped status")
	}
	if IsStatus(err, 200) {
		t.Error("IsStatus should not match another status")
	}
	if IsStatus(errors.New("plain"), 503) {
		t.Error("IsStatus should not match non-status errors")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("port", 70000, "port must be between 1 and 65535")
	want := "validation failed for field 'port' with value '70000': port must be between 1 and 65535"
	if got := err.Error(); got != want {
		t.Errorf("ValidationError.Error() = %v, want %v", got, want)
	}
}
