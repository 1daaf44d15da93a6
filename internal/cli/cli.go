// Package cli implements the stackdoc command-line interface.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackdoc/internal/config"
	"github.com/matzehuels/stackdoc/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "stackdoc"

	// registryCacheTTL is how long crates.io API responses are reused.
	registryCacheTTL = 24 * time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// verbose reports whether tool output should be streamed.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// RootCommand creates the root cobra command with all subcommands registered.
//
// The root also accepts "stackdoc <crate> [version]" as shorthand for
// "stackdoc build".
func (c *CLI) RootCommand() *cobra.Command {
	var opts buildOptions

	root := &cobra.Command{
		Use:   "stackdoc [crate] [version]",
		Short: "stackdoc publishes linked rustdoc for a crate and its dependencies",
		Long: `stackdoc builds rustdoc documentation for a crate and every library it
depends on, publishes each crate to a content-addressed store (IPFS or a
local Merkle store) with relative links between them, and records the
result in a persistent index.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		Args:         cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return c.runBuild(cmd, args, opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	opts.register(root)

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.indexCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// configCommand prints the effective configuration.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			printDetail("Sources: defaults, %s, .env, STACKDOC_* environment", c.configFile())
			printNewline()
			io.WriteString(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func (c *CLI) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return config.DefaultPath()
}
