package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"outreach-service/internal/app"
	"outreach-service/internal/campaign"
	"outreach-service/internal/contacts"
	"outreach-service/internal/modal"
)

var (
	runRunID   string
	runGoal    string
	runStyle   string
	runTone    string
	runLength  string
	runMessage string
	runName    string
	runNoWork  bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)

	runCmd.Flags().StringVar(&runRunID, "run-id", "", "run id (generated when empty)")
	runCmd.Flags().StringVar(&runGoal, "goal", "", "campaign goal: first_meeting, demo, reengagement, partnership, followup")
	runCmd.Flags().StringVar(&runStyle, "style", "", "force one draft style instead of the learned choice")
	runCmd.Flags().StringVar(&runTone, "tone", "", "tone passed to the generator")
	runCmd.Flags().StringVar(&runLength, "length", "", "draft length: concise, medium, detailed")
	runCmd.Flags().StringVar(&runMessage, "message", "", "what the sender wants to say")
	runCmd.Flags().StringVar(&runName, "name", "", "campaign name")
	runCmd.Flags().BoolVar(&runNoWork, "no-advance", false, "register the run without running the pipeline")
}

var runCmd = &cobra.Command{
	Use:   "run <contacts.csv>",
	Short: "Import contacts and draft an email for each",
	Long: `Import a contact CSV, register a run and advance every contact through
research and drafting. Rejected CSV rows are listed and counted in the report.

Examples:
  # Draft first-meeting emails with the learned style per contact
  outreach run leads.csv

  # Force one style and pass a message to the generator
  outreach run leads.csv --goal demo --style brief_direct --message "We cut CI time in half"`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var advanceCmd = &cobra.Command{
	Use:   "advance <run-id>",
	Short: "Resume a run and advance every unfinished contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			rep, err := advance(ctx, rt, args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Show a run's counts, failures and drafts awaiting review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			rep, err := rt.Orchestrator.Report(ctx, args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep)
		})
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			ids, err := rt.Orchestrator.Runs(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

func runRun(cmd *cobra.Command, args []string) error {
	res, err := contacts.ImportFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, rej := range res.Rejected {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s\n", rej.Error())
	}
	if len(res.Contacts) == 0 {
		return fmt.Errorf("no valid contacts in %s", args[0])
	}

	return withApp(cmd, func(ctx context.Context, rt *app.App) error {
		cfg := app.CampaignDefaults(rt.Config.Campaign)
		cfg.Name = runName
		cfg.Message = runMessage
		cfg.Style = modal.Style(runStyle)
		if runGoal != "" {
			cfg.Goal = modal.Goal(runGoal)
		}
		if runTone != "" {
			cfg.Tone = runTone
		}
		if runLength != "" {
			cfg.Length = modal.Length(runLength)
		}

		runID, err := rt.Orchestrator.StartRun(ctx, res.Contacts, cfg, campaign.StartOptions{
			RunID:        runRunID,
			RejectedRows: len(res.Rejected),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s: %d contacts, %d rows rejected\n", runID, len(res.Contacts), len(res.Rejected))
		if runNoWork {
			return nil
		}

		rep, err := advance(ctx, rt, runID)
		if err != nil {
			return err
		}
		return printReport(out, rep)
	})
}

// advance runs the pipeline until it finishes or the user interrupts. An
// interrupt stops scheduling; contacts already in flight still finish.
func advance(ctx context.Context, rt *app.App, runID string) (modal.RunReport, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if _, err := rt.Orchestrator.Resume(ctx, runID); err != nil {
		return modal.RunReport{}, err
	}
	return rt.Orchestrator.Advance(ctx, runID)
}

func printReport(w io.Writer, rep modal.RunReport) error {
	if outputJSON {
		return printJSON(w, rep)
	}

	fmt.Fprintf(w, "run %s: %d contacts", rep.RunID, rep.Total)
	if rep.RejectedRows > 0 {
		fmt.Fprintf(w, ", %d rows rejected at import", rep.RejectedRows)
	}
	if rep.Cancelled {
		fmt.Fprint(w, ", cancelled")
	}
	if rep.Complete {
		fmt.Fprint(w, ", complete")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	for _, st := range modal.Statuses {
		if n := rep.Counts[st]; n > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", st, n)
		}
	}
	if rep.FallbackDrafts > 0 {
		fmt.Fprintf(tw, "fallback drafts\t%d\n", rep.FallbackDrafts)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Failures) > 0 {
		fmt.Fprintln(w, "\nfailures:")
		failures := append([]modal.FailureNote(nil), rep.Failures...)
		sort.Slice(failures, func(i, j int) bool { return failures[i].Email < failures[j].Email })
		for _, f := range failures {
			fmt.Fprintf(w, "  %s [%s] %s: %s\n", f.Email, f.Status, f.Stage, f.Message)
		}
	}
	if len(rep.Reviews) > 0 {
		fmt.Fprintln(w, "\nawaiting review:")
		for _, t := range rep.Reviews {
			fmt.Fprintf(w, "  %s  %s <%s>  %q (%s, %.2f)\n",
				t.ContactID, t.Name, t.Email, t.Draft.Subject, t.Draft.Style, t.Draft.Confidence)
		}
	}
	return nil
}
