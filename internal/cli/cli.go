// Package cli implements the cardgen command-line interface.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"cardgen/internal/card"
	"cardgen/internal/generator"
	u "cardgen/internal/utils"
)

// Generator is what the commands need from a card generator.
type Generator interface {
	CheckAssets() error
	Build(ctx context.Context, rec card.Record) ([]byte, error)
	Generate(ctx context.Context, rec card.Record) (string, error)
}

// GeneratorFactory builds a Generator from the loaded configuration. rdb is
// nil when Redis is not configured.
type GeneratorFactory func(cfg u.Config, rdb *redis.Client) (Generator, error)

// CLI holds shared state for all commands.
type CLI struct {
	Out io.Writer
	Now func() time.Time

	NewGenerator GeneratorFactory

	configPath string
	verbose    bool
	cfg        u.Config
}

// New creates a CLI writing its reports to out.
func New(out io.Writer) *CLI {
	return &CLI{
		Out: out,
		Now: time.Now,
		NewGenerator: func(cfg u.Config, rdb *redis.Client) (Generator, error) {
			return generator.FromConfig(cfg, rdb)
		},
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardgen",
		Short:         "cardgen produces two-page player ID card PDFs",
		Long:          `cardgen fills the player's name and dates into an SVG card template, renders it to PDF and appends the scaled back page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.serveCommand())

	return root
}

// Execute runs the command line in args.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(c.Out)
	return root.ExecuteContext(ctx)
}

// setup loads the configuration and initialises logging.
func (c *CLI) setup() error {
	cfg, err := u.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	u.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	if c.verbose {
		u.SetLogLevel("debug")
	}
	c.cfg = cfg
	return nil
}

// redisClient returns a client for the render cache, or nil when the cache
// is off.
func (c *CLI) redisClient() *redis.Client {
	if c.cfg.Cache.RedisHost == "" || !c.cfg.Cache.RenderCacheEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: c.cfg.Cache.RedisHost,
		DB:   c.cfg.Cache.RenderCacheDB,
	})
}

// newGenerator builds the generator and verifies its assets.
func (c *CLI) newGenerator(rdb *redis.Client) (Generator, error) {
	gen, err := c.NewGenerator(c.cfg, rdb)
	if err != nil {
		return nil, err
	}
	if err := gen.CheckAssets(); err != nil {
		return nil, err
	}
	return gen, nil
}
