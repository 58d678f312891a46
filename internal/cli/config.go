package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as YAML after merging defaults,
the config file, COURIER_* environment variables and flags. Passphrases are
redacted. The command fails when the configuration does not validate.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, nil); err != nil {
				return err
			}
			if err := a.cfg.WriteYAML(cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("%w: failed to write configuration: %v", ErrInternal, err)
			}
			return nil
		},
	}
}
