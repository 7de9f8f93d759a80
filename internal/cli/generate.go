package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cardgen/internal/batch"
	"cardgen/internal/card"
)

var errBatchWithArgs = errors.New("--batch cannot be combined with positional arguments")

func (c *CLI) generateCommand() *cobra.Command {
	var (
		batchFile string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "generate <name> <date_of_birth> [issue_date]",
		Short: "Generate one card, or one per entry of a batch file",
		Long: `Generate a player card PDF.

Dates may be written as YYYY-MM-DD, YYYY/MM/DD, MM-DD-YYYY or MM/DD/YYYY.
The issue date defaults to today and cards expire 7 days after issue.`,
		Example: `  cardgen generate "Jane Doe" 1990-01-15
  cardgen generate "Jane Doe" 1990-01-15 2026-01-05
  cardgen generate --batch players.yaml --output-dir cards`,
		Args: func(cmd *cobra.Command, args []string) error {
			if batchFile != "" {
				if len(args) > 0 {
					return errBatchWithArgs
				}
				return nil
			}
			return cobra.RangeArgs(2, 3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" {
				c.cfg.Card.OutputDir = outputDir
			}

			rdb := c.redisClient()
			if rdb != nil {
				defer rdb.Close()
			}
			gen, err := c.newGenerator(rdb)
			if err != nil {
				return err
			}

			if batchFile != "" {
				return c.runBatch(cmd.Context(), gen, batchFile)
			}
			return c.runSingle(cmd.Context(), gen, args)
		},
	}

	cmd.Flags().StringVarP(&batchFile, "batch", "b", "", "YAML file with a list of players (name, dob, issue_date)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for generated cards (default from config)")
	return cmd
}

func (c *CLI) runSingle(ctx context.Context, gen Generator, args []string) error {
	var issue any
	if len(args) > 2 {
		issue = args[2]
	}
	rec, err := card.NewRecord(args[0], args[1], issue, c.Now())
	if err != nil {
		return err
	}

	path, err := gen.Generate(ctx, rec)
	if err != nil {
		return err
	}
	c.printCard(path, rec)
	return nil
}

// reporter prints every card a batch produces.
type reporter struct {
	Generator
	cli *CLI
}

func (r reporter) Generate(ctx context.Context, rec card.Record) (string, error) {
	path, err := r.Generator.Generate(ctx, rec)
	if err != nil {
		r.cli.printError("%s: %v", rec.Name(), err)
		return "", err
	}
	r.cli.printCard(path, rec)
	return path, nil
}

func (c *CLI) runBatch(ctx context.Context, gen Generator, file string) error {
	n, err := batch.Count(file)
	if err != nil {
		return err
	}
	c.printInfo("Processing %d players from %s", n, file)

	summary, err := batch.RunFile(ctx, reporter{Generator: gen, cli: c}, file, c.Now())
	if err != nil {
		return err
	}
	for _, w := range summary.Warnings {
		c.printWarning("%s", w)
	}
	c.printSummary(summary)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d cards failed", summary.Failed, summary.Total)
	}
	return nil
}
