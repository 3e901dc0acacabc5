package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/rune/internal/version"
)

func (c *cli) newVersionCommand() *cobra.Command {
	var (
		format string
		short  bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  rune version                 # Show version details
  rune version --short         # Show short version
  rune version --format json   # Output as JSON`,
		Args: cobra.NoArgs,
		// version works without a valid configuration
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(*cobra.Command, []string) error {
			return c.runVersion(format, short)
		},
	}

	addFormatFlag(cmd, &format, FormatText, FormatJSON)
	cmd.Flags().BoolVar(&short, "short", false, "Show short version only")

	return cmd
}

func (c *cli) runVersion(format string, short bool) error {
	info := version.Get()

	switch {
	case format == FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case short:
		_, err := fmt.Fprintln(c.out, info.Short())
		return err
	}

	kind := "development"
	if info.IsRelease() {
		kind = "release"
	}
	_, err := fmt.Fprintf(c.out, "%s %s\n%s\nBuild type: %s\n", c.app.Name, info.Short(), info, kind)

	return err
}
