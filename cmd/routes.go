package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/rune/internal/server"
)

// routeEntry is one row of the routes listing.
type routeEntry struct {
	Kind      string   `json:"kind"                yaml:"kind"`
	Path      string   `json:"path"                yaml:"path"`
	Component string   `json:"component,omitempty" yaml:"component,omitempty"`
	File      string   `json:"file,omitempty"      yaml:"file,omitempty"`
	Dynamic   bool     `json:"dynamic"             yaml:"dynamic"`
	Params    []string `json:"params,omitempty"    yaml:"params,omitempty"`
	Methods   []string `json:"methods,omitempty"   yaml:"methods,omitempty"`
}

func (c *cli) newRoutesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List page and API routes in match order",
		Long: `Scan the page and API directories, bind the files to the compiled
modules and print the resulting routes in the order requests are matched.

Examples:
  rune routes
  rune routes --format json
  rune routes --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRoutes(cmd.Context(), format)
		},
	}

	addFormatFlag(cmd, &format, FormatText, FormatJSON, FormatYAML)

	return cmd
}

func (c *cli) runRoutes(ctx context.Context, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	routes := server.NewRoutes(c.app.Catalog, c.cfg.Paths.Pages, c.cfg.Paths.API, c.logger)
	if err := routes.Rescan(ctx); err != nil {
		return err
	}
	entries := routeEntries(routes)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatYAML:
		enc := yaml.NewEncoder(c.out)
		defer enc.Close()
		return enc.Encode(entries)
	}

	return writeRouteTable(c, entries)
}

func routeEntries(routes *server.Routes) []routeEntry {
	entries := []routeEntry{}

	pages := routes.Pages()
	for _, r := range pages.Routes() {
		e := routeEntry{Kind: "page", Path: r.Path, File: r.FilePath, Dynamic: r.IsDynamic, Params: r.Params}
		if mod, ok := pages.Lookup(r.Path); ok && mod != nil {
			e.Component = mod.Name
		}
		entries = append(entries, e)
	}

	apis := routes.APIs()
	for _, r := range apis.Routes() {
		e := routeEntry{Kind: "api", Path: r.Path, File: r.FilePath, Dynamic: r.IsDynamic, Params: r.Params}
		if mod, ok := apis.Lookup(r.Path); ok && mod != nil {
			e.Methods = mod.Methods()
		}
		entries = append(entries, e)
	}

	return entries
}

func writeRouteTable(c *cli, entries []routeEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(c.out, "No routes found")
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPATH\tTARGET\tFILE")
	for _, e := range entries {
		target := e.Component
		if e.Kind == "api" {
			target = strings.Join(e.Methods, ",")
		}
		file := e.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, e.Path, target, file)
	}

	return tw.Flush()
}
