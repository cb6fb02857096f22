package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/erp/acct/internal/bootstrap"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// cli carries the state resolved by the root command for its subcommands
type cli struct {
	envFile  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "acctctl",
		Short: "Operate the accounting service from the command line",
		Long: `acctctl runs recurring billing, reports and token issuance against the
store configured for the accounting service.

Configuration comes from ACCT_* environment variables, an optional .env file
and config.toml, in that order of precedence.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Environment file to load before reading configuration")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newRunDueCmd(c),
		newReportCmd(c),
		newOutstandingCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	// variables already in the environment win over the file
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	// stdout carries command output
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	c.cfg = cfg
	c.log = log.Named("acctctl").With(zap.String("command", cmd.Name()))
	return nil
}

// withApp builds the service graph, runs fn and releases every resource
func (c *cli) withApp(cmd *cobra.Command, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.Build(cmd.Context(), c.cfg, c.log)
	if err != nil {
		return err
	}
	runErr := fn(app)
	if err := app.Close(); err != nil {
		c.log.Warn("Failed to release resources", zap.Error(err))
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
