package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/rune/internal/browser"
	"github.com/conneroisu/rune/internal/inspect"
	"github.com/conneroisu/rune/internal/registry"
)

// ErrInconsistent is returned by inspect when the page and its props
// registry disagree.
var ErrInconsistent = errors.New("page is not consistent with its props registry")

func (c *cli) newInspectCommand() *cobra.Command {
	var (
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Hydrate a served page headlessly and check its registry",
		Long: `Fetch a page, evaluate its data and props globals and hydrate it with
the application's client constructors. Components without a constructor are
attached by probes. The command fails if a marked element has no registry
record, a record is unused, an id repeats or a component failed to hydrate.

Examples:
  rune inspect http://localhost:3000/
  rune inspect http://localhost:3000/users/42 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return c.runInspect(ctx, args[0], format, timeout)
		},
	}

	addFormatFlag(cmd, &format, FormatText, FormatJSON)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}

func (c *cli) runInspect(ctx context.Context, target, format string, timeout time.Duration) error {
	opts := inspect.Options{
		Fetcher: browser.NewHTTPFetcher(timeout),
		Logger:  c.logger,
	}
	if c.app.Register != nil {
		t := registry.NewTable()
		c.app.Register(t)
		opts.Constructors = t
	}

	report, err := inspect.URL(ctx, target, opts)
	if err != nil {
		return err
	}

	if format == FormatJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if err := writeReport(c, report); err != nil {
		return err
	}

	if !report.Consistent() {
		return ErrInconsistent
	}

	return nil
}

func writeReport(c *cli, r *inspect.Report) error {
	fmt.Fprintf(c.out, "%s (%d)\n", r.URL, r.Status)
	if r.Page != "" {
		fmt.Fprintf(c.out, "Page: %s\n", r.Page)
	}
	fmt.Fprintf(c.out, "Records: %d  Hydrated: %d  Failed: %d\n\n", r.Records, r.Hydrated, r.Failed)

	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPONENT\tID\tSTATE\tERROR")
	for _, n := range r.Nodes {
		id := n.ID
		if n.Page {
			id = "(page)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Name, id, n.State, n.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, problem := range []struct {
		label string
		ids   []string
	}{
		{"Missing records", r.MissingRecords},
		{"Unused records", r.UnusedRecords},
		{"Duplicate ids", r.DuplicateIDs},
		{"Name mismatches", r.NameMismatches},
	} {
		if len(problem.ids) > 0 {
			fmt.Fprintf(c.out, "%s: %s\n", problem.label, strings.Join(problem.ids, ", "))
		}
	}

	return nil
}
