package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/rune/internal/config"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/server"
)

// App is the application the commands serve.
type App struct {
	// Name is shown in help output. It defaults to "rune".
	Name    string
	Catalog server.Catalog
	// Register adds the client constructors of the app. inspect uses them
	// before falling back to probes.
	Register func(t *registry.Table)
}

// cli is the state shared by the commands of one root command.
type cli struct {
	app     App
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  logging.Logger
	out     io.Writer
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"port":            "server.port",
	"host":            "server.host",
	"hot-reload-port": "dev.hot_reload_port",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app App) *cobra.Command {
	if app.Name == "" {
		app.Name = "rune"
	}
	c := &cli{app: app, v: viper.New(), out: os.Stdout}

	root := &cobra.Command{
		Use:   app.Name,
		Short: "Server rendering with client hydration for Go",
		Long: `rune renders pages on the server, annotates every component with the
props it was built from and ships a client runtime that hydrates the markup
in place, navigates without full reloads and hot reloads during development.

Quick Start:
  ` + app.Name + ` dev                 Start the development server
  ` + app.Name + ` routes              List routes in match order
  ` + app.Name + ` start               Serve in production mode`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(os.Stdout)

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "",
		"config file (default is .rune.yml, can also use RUNE_CONFIG_FILE env var)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "pretty", "log format (pretty, text, json)")
	AddFlagValidation(root.PersistentFlags(), "log-level", func(s string) error {
		_, err := logging.ParseLevel(s)
		return err
	})

	root.AddCommand(
		c.newDevCommand(),
		c.newStartCommand(),
		c.newRoutesCommand(),
		c.newInspectCommand(),
		c.newVersionCommand(),
	)

	return root
}

// Execute runs the root command for app.
func Execute(app App) error {
	return NewRootCommand(app).Execute()
}

// setup loads the configuration and builds the logger before any command
// runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	c.out = cmd.OutOrStdout()

	if err := c.initConfig(); err != nil {
		return err
	}
	bindFlags(c.v, cmd)

	cfg, err := config.LoadFrom(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	c.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	return nil
}

// initConfig picks the config file: --config, then RUNE_CONFIG_FILE, then
// .rune.yml in the working directory. A missing default file is not an
// error.
func (c *cli) initConfig() error {
	explicit := true
	switch {
	case c.cfgFile != "":
		c.v.SetConfigFile(c.cfgFile)
	case os.Getenv("RUNE_CONFIG_FILE") != "":
		c.v.SetConfigFile(os.Getenv("RUNE_CONFIG_FILE"))
	default:
		explicit = false
		c.v.AddConfigPath(".")
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".rune")
	}

	c.v.SetEnvPrefix("RUNE")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	return nil
}

// bindFlags binds the flags of cmd and its parents that override
// configuration keys. Only changed flags take precedence over the file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.InheritedFlags().Lookup(name)
		}
		if flag != nil && flag.Changed {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
