package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/sufield/courier/internal/buildinfo"
)

// newManCmd generates manual pages; shell completion is built into cobra.
func newManCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "man [directory]",
		Short: "Generate manual pages",
		Long: `Generate manual pages for the courier CLI.

If no directory is specified, manual pages will be generated in the current directory.

Example:
  courier man /usr/local/share/man/man1`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			header := &doc.GenManHeader{
				Title:   "COURIER",
				Section: "1",
				Source:  "courier " + buildinfo.Get().Version,
				Manual:  "courier Manual",
			}

			if err := doc.GenManTree(cmd.Root(), header, dir); err != nil {
				return fmt.Errorf("%w: failed to generate manual pages: %v", ErrInternal, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Manual pages generated in directory: %s\n", dir)
			return nil
		},
	}
}
