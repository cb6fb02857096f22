package main

import (
	"fmt"
	"time"

	"github.com/erp/acct/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunDueCmd(c *cli) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "run-due",
		Short: "Generate invoices for every recurring template that is due",
		Long: `run-due scans the active recurring templates and generates one invoice per
due occurrence. Occurrences already billed by the scheduler or an earlier
run-due are skipped.`,
		Example: `  acctctl run-due
  acctctl run-due --at 2024-03-15T09:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at %q, use RFC 3339: %w", at, err)
				}
				now = parsed
			}
			return c.withApp(cmd, func(app *bootstrap.App) error {
				result, err := app.Recurring.RunDue(cmd.Context(), now)
				if err != nil {
					return err
				}
				c.log.Info("Due templates processed",
					zap.Time("at", now),
					zap.Int("ran", len(result.Runs)),
					zap.Int("skipped", len(result.Skipped)),
					zap.Int("failed", len(result.Failed)),
				)
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if len(result.Failed) > 0 {
					return fmt.Errorf("%d template runs failed", len(result.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Evaluate due runs at this instant (RFC 3339, default: now)")
	return cmd
}
