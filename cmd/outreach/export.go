package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"outreach-service/internal/app"
	"outreach-service/internal/export"
)

var (
	exportFormat string
	exportOut    string
	exportGmail  bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatText, "json or text")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportGmail, "gmail-drafts", false, "also save each email as a Gmail draft")
}

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write out the approved and edited emails of a run",
	Long: `Export every approved email of a run, with the reviewer's edits applied.
Rejected and undecided drafts are left out.

Examples:
  # Save the campaign file next to the snapshots
  outreach export spring-2026 --format json -o spring-2026.json

  # Put the emails in the sender's Gmail drafts folder
  outreach export spring-2026 --gmail-drafts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := exportFormat
		if outputJSON {
			format = export.FormatJSON
		}
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			exp, err := rt.Orchestrator.Export(ctx, args[0])
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, format, exp); err != nil {
				return err
			}
			if exportOut != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d emails to %s\n", len(exp.Emails), exportOut)
			}

			if !exportGmail || len(exp.Emails) == 0 {
				return nil
			}
			drafts, err := rt.GmailDrafts(ctx)
			if err != nil {
				return err
			}
			results, err := drafts.Create(ctx, exp)
			for _, r := range results {
				if r.Error != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "draft for %s failed: %s\n", r.Email, r.Error)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "draft %s created for %s\n", r.DraftID, r.Email)
			}
			return err
		})
	},
}
