package cli

import (
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/spf13/cobra"

	"github.com/sufield/courier/internal/adapters/logging"
	"github.com/sufield/courier/internal/config"
)

// Persistent flag names.
const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagLogFile   = "log-file"
)

var logBindings = map[string]string{
	"log.level":  flagLogLevel,
	"log.format": flagLogFormat,
	"log.file":   flagLogFile,
}

// app is the state shared by every command of one invocation.
type app struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// NewRootCmd builds the courier command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Deliver text payloads over mutually authenticated HTTPS",
		Long: `Deliver text payloads over mutually authenticated HTTPS.

courier sends one payload per call to an https address and runs a receiver
that prints every delivery it accepts. The address fragment is carried on
the wire, so https://host:7847/#token style capability addresses work.

Settings come from flags, COURIER_* environment variables and courier.yaml,
in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, flagConfig, "", "config file (default $COURIER_CONFIG or ./courier.yaml)")
	flags.String(flagLogLevel, "info", "log level: debug, info, warn, error")
	flags.String(flagLogFormat, "text", "log format: text or json")
	flags.String(flagLogFile, "", "write logs to a rotated file instead of stderr")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	cmd.AddCommand(
		newSendCmd(a),
		newListenCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
		newManCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads configuration with the command's flags bound over it and
// builds the logger. bindings maps configuration keys to flag names.
func (a *app) setup(cmd *cobra.Command, bindings map[string]string) error {
	all := maps.Clone(logBindings)
	maps.Copy(all, bindings)

	cfg, err := config.Load(a.configPath, config.WithFlags(cmd.Flags(), all))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	a.cfg = cfg
	a.logger = logger
	a.closer = closer
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// usageArgs wraps positional argument validation errors in ErrUsage.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
}
