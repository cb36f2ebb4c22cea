package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/onerbs/identy/pkg/errors"
	"github.com/onerbs/identy/pkg/icon"
)

// previewCommand creates the "preview" command.
func (c *CLI) previewCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "preview <string>",
		Short: "Browse icon variants interactively",
		Long: `Preview renders an icon in the terminal and lets you step through its
63 variants with the arrow keys. Press s to save the variant you like.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			opts := flags.options(cmd, cfg)
			if opts.Variant < 1 || opts.Variant > icon.MaxVariant {
				opts.Variant = icon.DefaultSource().Intn(icon.MaxVariant) + 1
			}

			size := flags.size
			if size == 0 {
				size = 128
			}

			m := previewModel{
				name:   args[0],
				opts:   opts,
				invert: flags.invert,
				size:   size,
			}
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// previewModel is the bubbletea model behind the preview command.
type previewModel struct {
	name   string
	opts   icon.Options
	invert bool
	size   int
	status string
}

// Init implements tea.Model.
func (m previewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.status = ""
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "right", "l":
		m.opts.Variant++
		if m.opts.Variant > icon.MaxVariant {
			m.opts.Variant = 1
		}

	case "left", "h":
		m.opts.Variant--
		if m.opts.Variant < 1 {
			m.opts.Variant = icon.MaxVariant
		}

	case "i":
		m.invert = !m.invert

	case "s":
		m.status = m.save()
	}

	return m, nil
}

// save writes the current variant as a PNG and reports the outcome.
func (m previewModel) save() string {
	ic, err := m.render()
	if err != nil {
		return "save failed: " + errors.UserMessage(err)
	}
	img, err := ic.Image(m.size, 1)
	if err != nil {
		return "save failed: " + errors.UserMessage(err)
	}

	path := defaultFileName(fmt.Sprintf("%s-v%d", m.name, m.opts.Variant))
	if err := img.Save(path); err != nil {
		return "save failed: " + errors.UserMessage(err)
	}
	return "saved " + path
}

// render builds the icon for the current variant.
func (m previewModel) render() (*icon.Icon, error) {
	ic, err := icon.FromString(m.name, m.opts)
	if err != nil {
		return nil, err
	}
	if m.invert {
		ic = ic.Invert()
	}
	return ic, nil
}

// View implements tea.Model.
func (m previewModel) View() string {
	header := StyleTitle.Render(m.name) +
		StyleDim.Render(fmt.Sprintf("  variant %d/%d", m.opts.Variant, icon.MaxVariant))

	body := ""
	if ic, err := m.render(); err != nil {
		body = StyleWarning.Render(errors.UserMessage(err))
	} else {
		body = ic.String()
	}

	footer := StyleDim.Render("←/→ variant · i invert · s save · q quit")
	if m.status != "" {
		footer = StyleValue.Render(m.status) + "\n" + footer
	}

	return fmt.Sprintf("\n%s\n\n%s\n\n%s\n", header, body, footer)
}
