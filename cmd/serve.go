package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/conneroisu/rune/internal/config"
	"github.com/conneroisu/rune/internal/devserver"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/server"
)

func (c *cli) newDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dev",
		Aliases: []string{"d"},
		Short:   "Start the development server with hot reload",
		Long: `Serve pages in development mode. Page and API directories are scanned
for routes, files are watched and every open tab is told to reload, swap its
stylesheets or show an error banner over the hot reload channel.

Examples:
  rune dev                          # Serve on localhost:3000
  rune dev --port 4000              # Serve on another port
  rune dev --hot-reload-port 4100   # Move the hot reload channel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDev(cmd.Context())
		},
	}

	addServerFlags(cmd)
	cmd.Flags().Int("hot-reload-port", 3001, "First port probed for the hot reload channel")
	AddFlagValidation(cmd.Flags(), "hot-reload-port", ValidatePort)

	return cmd
}

func (c *cli) runDev(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signalContext(parent)
	defer stop()

	cfg := *c.cfg
	cfg.Server.Environment = config.EnvDevelopment

	dev, err := devserver.New(&cfg, c.app.Catalog, c.logger)
	if err != nil {
		return err
	}

	return ignoreCanceled(dev.Run(ctx))
}

func (c *cli) newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"s"},
		Short:   "Serve pages in production mode",
		Long: `Serve pages in production mode: no hot reload client, no file watcher
and generic error pages.

Examples:
  rune start
  RUNE_SERVER_PORT=8080 rune start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStart(cmd.Context())
		},
	}

	addServerFlags(cmd)

	return cmd
}

func (c *cli) runStart(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signalContext(parent)
	defer stop()

	srv, err := c.productionServer(ctx)
	if err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), devserver.ShutdownTimeout)
	defer cancel()

	return ignoreCanceled(errors.Join(runErr, srv.Shutdown(shutdownCtx)))
}

// productionServer builds a page server with development features off.
func (c *cli) productionServer(ctx context.Context) (*server.Server, error) {
	cfg := *c.cfg
	cfg.Server.Environment = config.EnvProduction
	cfg.Dev.HotReload = false

	routes := server.NewRoutes(c.app.Catalog, cfg.Paths.Pages, cfg.Paths.API, c.logger)
	if err := routes.Rescan(ctx); err != nil {
		return nil, err
	}

	return server.New(server.Options{
		Config:   &cfg,
		Routes:   routes,
		Renderer: page.NewRenderer(page.Options{Logger: c.logger}),
		Logger:   c.logger,
	}), nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
