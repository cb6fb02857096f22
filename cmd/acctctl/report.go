package main

import (
	"errors"
	"strings"

	"github.com/erp/acct/internal/bootstrap"
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/spf13/cobra"
)

type reportOutput struct {
	Module accounting.ReportModule `json:"module"`
	From   string                  `json:"from"`
	To     string                  `json:"to"`
	Report accounting.Report       `json:"report"`

	ArchiveKey  string `json:"archive_key,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

func newReportCmd(c *cli) *cobra.Command {
	var (
		from, to string
		archive  bool
	)
	modules := make([]string, 0, len(accounting.ReportModules))
	for _, m := range accounting.ReportModules {
		modules = append(modules, string(m))
	}

	cmd := &cobra.Command{
		Use:       "report <module>",
		Short:     "Aggregate a report module over a date range",
		Long:      "Modules: " + strings.Join(modules, ", ") + ".\nBoth dates are inclusive civil days in the billing time zone.",
		Example:   `  acctctl report invoices --from 2024-03-01 --to 2024-03-31`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: modules,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(app *bootstrap.App) error {
				if archive && app.Archive == nil {
					return errors.New("--archive needs archive.enabled")
				}
				report, err := app.Reports.Generate(cmd.Context(), args[0], from, to)
				if err != nil {
					return err
				}
				out := reportOutput{Module: report.Module(), From: from, To: to, Report: report}
				if archive {
					if out.ArchiveKey, err = app.Archive.ArchiveReport(cmd.Context(), out.Module, from, to, out); err != nil {
						return err
					}
					if out.DownloadURL, _, err = app.Archive.DownloadURL(cmd.Context(), out.ArchiveKey, 0); err != nil {
						return err
					}
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&archive, "archive", false, "Store the report in the document archive and print a download link")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newOutstandingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "outstanding",
		Short: "List every invoice and quotation with an open balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(app *bootstrap.App) error {
				out, err := app.Recon.Outstanding(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}
