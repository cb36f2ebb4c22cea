package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/onerbs/identy/pkg/config"
	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/icon"
)

// Output formats for icon commands.
const (
	formatPNG    = "png"
	formatBase64 = "base64"
	formatText   = "text"
)

// generateFlags holds the flag values shared by generate and random.
type generateFlags struct {
	radius  int
	border  int
	black   bool
	variant int
	size    int
	scale   int
	invert  bool
	format  string
	output  string
}

// register binds the shared flags to cmd.
func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.radius, "radius", "r", icon.DefaultRadius, "icon radius, border included")
	cmd.Flags().IntVarP(&f.border, "border", "b", icon.DefaultBorder, "border thickness")
	cmd.Flags().BoolVar(&f.black, "black", false, "black border instead of white")
	cmd.Flags().IntVarP(&f.variant, "variant", "v", 0, "digest shuffle variant in [1-63], 0 picks at random")
	cmd.Flags().IntVarP(&f.size, "size", "s", 0, "output size in pixels, overrides --scale")
	cmd.Flags().IntVar(&f.scale, "scale", 1, "pixel scale factor")
	cmd.Flags().BoolVarP(&f.invert, "invert", "i", false, "invert cell intensities")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatPNG, "output format: png, base64 or text")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (png format only)")
}

// options merges config defaults with the flags the user actually set.
func (f *generateFlags) options(cmd *cobra.Command, cfg config.Config) icon.Options {
	opts := icon.Options{
		Radius:  cfg.Defaults.Radius,
		Border:  cfg.Defaults.Border,
		Black:   cfg.Defaults.Black,
		Variant: cfg.Defaults.Variant,
	}
	if cmd.Flags().Changed("radius") {
		opts.Radius = f.radius
	}
	if cmd.Flags().Changed("border") {
		opts.Border = f.border
	}
	if cmd.Flags().Changed("black") {
		opts.Black = f.black
	}
	if cmd.Flags().Changed("variant") {
		opts.Variant = f.variant
	}
	return opts
}

// generateCommand creates the "generate" command.
func (c *CLI) generateCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate <string>",
		Short: "Generate a deterministic icon from a string",
		Long: `Generate derives an identicon from a string. The same string and
variant always produce the same icon, so icons work as stable visual
fingerprints for usernames, hashes or any other identifier.`,
		Example: `  # PNG next to you, named after the input
  identy generate hello

  # A specific variant at 128x128 px
  identy generate hello --variant 7 --size 128

  # Print to the terminal instead of writing a file
  identy generate hello --format text`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			ic, err := icon.FromString(name, flags.options(cmd, cfg))
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}

			return c.emit(ic, flags, cfg, defaultFileName(name))
		},
	}

	flags.register(cmd)
	return cmd
}

// emit renders an icon in the selected format, writing a file for PNG
// output and printing to stdout otherwise.
func (c *CLI) emit(ic *icon.Icon, flags *generateFlags, cfg config.Config, fallbackName string) error {
	if flags.invert {
		ic = ic.Invert()
	}

	switch flags.format {
	case formatText:
		fmt.Println(ic.String())
		return nil

	case formatBase64:
		img, err := ic.Image(flags.size, flags.scale)
		if err != nil {
			printError("%s", errors.UserMessage(err))
			return err
		}
		fmt.Println(img.Base64())
		return nil

	case formatPNG:
		track := newProgress(c.Logger)

		img, err := ic.Image(flags.size, flags.scale)
		if err != nil {
			printError("%s", errors.UserMessage(err))
			return err
		}

		path := flags.output
		if path == "" {
			path = filepath.Join(cfg.Output.Dir, fallbackName)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := img.Save(path); err != nil {
			printError("%s", errors.UserMessage(err))
			return err
		}

		track.done(fmt.Sprintf("Generated %s", filepath.Base(path)))
		printSuccess("Icon saved")
		printFile(path)
		return nil

	default:
		return errors.New(errors.ErrCodeInvalidFormat,
			"unknown format %q, expected png, base64 or text", flags.format)
	}
}

// defaultFileName derives a safe file name from an icon name.
// Path separators are flattened so "a/b" cannot escape the output dir.
func defaultFileName(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '-'
		}
		return r
	}, name)
	if safe == "" {
		safe = "icon"
	}
	return safe + ".png"
}
