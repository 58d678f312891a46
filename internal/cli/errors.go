package cli

import (
	"errors"

	"github.com/sufield/courier/pkg/courier"
)

// Sentinel errors for exit code classification
var (
	// ErrUsage indicates invalid command usage, flags, or arguments
	ErrUsage = errors.New("usage error")

	// ErrConfig indicates invalid configuration or security material
	ErrConfig = errors.New("configuration error")

	// ErrRuntime indicates a failed send or a receiver that stopped with an error
	ErrRuntime = errors.New("runtime error")

	// ErrInternal indicates internal failures such as unwritable output
	ErrInternal = errors.New("internal error")
)

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitRuntime  = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrRuntime):
		return ExitRuntime
	default:
		return ExitInternal
	}
}

// classifySend maps a send failure onto the CLI error classes.
func classifySend(err error) error {
	var protoErr *courier.InvalidProtocolError
	switch {
	case errors.Is(err, courier.ErrMissingAddress),
		errors.Is(err, courier.ErrMissingHost),
		errors.Is(err, courier.ErrMissingPort),
		errors.As(err, &protoErr):
		return errors.Join(ErrUsage, err)
	case errors.Is(err, courier.ErrInvalidMaterial):
		return errors.Join(ErrConfig, err)
	default:
		return errors.Join(ErrRuntime, err)
	}
}
