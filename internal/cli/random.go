package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/icon"
)

// randomCommand creates the "random" command.
func (c *CLI) randomCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Generate an icon with random cell intensities",
		Long: `Random fills the icon grid with uniformly random intensities instead
of deriving them from a digest. Useful for placeholder art and for
eyeballing how radius, border and scale interact.`,
		Example: `  # A fresh random icon
  identy random

  # Bigger grid, black border, 256x256 px
  identy random --radius 6 --black --size 256`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			ic, err := icon.Random(flags.options(cmd, cfg))
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}

			name := fmt.Sprintf("random-%s.png", uuid.NewString()[:8])
			return c.emit(ic, flags, cfg, name)
		},
	}

	flags.register(cmd)
	return cmd
}
