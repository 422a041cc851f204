package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"outreach-service/internal/app"
	"outreach-service/internal/modal"
	"outreach-service/internal/review"
)

var (
	reviewer     string
	decideBody   string
	decideNotes  string
	decideFile   string
	respondValue string
)

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(statsCmd)

	rootCmd.PersistentFlags().StringVar(&reviewer, "reviewer", os.Getenv("USER"), "name recorded on decisions")

	decideCmd.Flags().StringVar(&decideBody, "body", "", "replacement body for an edit")
	decideCmd.Flags().StringVar(&decideFile, "body-file", "", "read the replacement body from a file")
	decideCmd.Flags().StringVar(&decideNotes, "notes", "", "reviewer notes")

	respondCmd.Flags().StringVar(&respondValue, "response", "", "replied, meeting or none")
	_ = respondCmd.MarkFlagRequired("response")
}

var reviewCmd = &cobra.Command{
	Use:   "review <run-id>",
	Short: "Review drafts interactively",
	Long: `Walk through every draft awaiting review. For each one choose
[a]pprove, [e]dit (finish the new body with a line holding a single "."),
[r]eject, [s]kip or [q]uit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			rep, err := rt.Orchestrator.Report(ctx, args[0])
			if err != nil {
				return err
			}
			if len(rep.Reviews) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing awaiting review")
				return nil
			}
			console := review.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), reviewer)
			sum, err := console.Run(ctx, args[0], rep.Reviews, rt.Orchestrator)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "approved %d, edited %d, rejected %d, skipped %d, errors %d\n",
				sum.Approved, sum.Edited, sum.Rejected, sum.Skipped, sum.Errors)
			return nil
		})
	},
}

var decideCmd = &cobra.Command{
	Use:   "decide <run-id> <contact-id> <approve|edit|reject>",
	Short: "Record one review decision for the current draft",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, contactID := args[0], args[1]
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			task, err := pendingTask(ctx, rt, runID, contactID)
			if err != nil {
				return err
			}

			var d modal.ReviewDecision
			switch args[2] {
			case "approve", "approved":
				d = review.Approve(task, reviewer)
			case "edit", "edited":
				body, err := editedBody()
				if err != nil {
					return err
				}
				d = review.Edit(task, body, reviewer)
			case "reject", "rejected":
				d = review.Reject(task, reviewer, decideNotes)
			default:
				return fmt.Errorf("unknown decision %q", args[2])
			}
			if d.Notes == "" {
				d.Notes = decideNotes
			}
			if err := rt.Orchestrator.RecordDecision(ctx, runID, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", contactID, d.Outcome)
			return nil
		})
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <run-id> <contact-id>",
	Short: "Record how a contact answered a sent email",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			if err := rt.Orchestrator.RecordResponse(ctx, args[0], args[1], modal.Response(respondValue)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[1], respondValue)
			return nil
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <run-id> <contact-id>",
	Short: "Send a failed contact back through the pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			if _, err := rt.Orchestrator.Resume(ctx, args[0]); err != nil {
				return err
			}
			if err := rt.Orchestrator.Retry(ctx, args[0], args[1]); err != nil {
				return err
			}
			rep, err := rt.Orchestrator.Advance(ctx, args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep)
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <run-id>",
	Short: "Stop scheduling new work for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, rt *app.App) error {
			if err := rt.Orchestrator.Cancel(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s cancelled\n", args[0])
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show approval and response rates per style",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, rt *app.App) error {
			st := rt.Learning.Stats()
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "outcomes %d, responses %d (%.0f%%)\n", st.TotalOutcomes, st.Responses, st.ResponseRate*100)
			for _, style := range modal.DefaultStyles {
				ss, ok := st.PerStyle[style]
				if !ok {
					continue
				}
				fmt.Fprintf(w, "  %-24s total %3d  approved %3d  edited %3d  rejected %3d  approval %.0f%%\n",
					style, ss.Total, ss.Approved, ss.Edited, ss.Rejected, ss.ApprovalRate*100)
			}
			if st.BestStyle != "" {
				fmt.Fprintf(w, "best style: %s\n", st.BestStyle)
			}
			return nil
		})
	},
}

func pendingTask(ctx context.Context, rt *app.App, runID, contactID string) (modal.ReviewTask, error) {
	rep, err := rt.Orchestrator.Report(ctx, runID)
	if err != nil {
		return modal.ReviewTask{}, err
	}
	for _, t := range rep.Reviews {
		if t.ContactID == contactID {
			return t, nil
		}
	}
	return modal.ReviewTask{}, fmt.Errorf("contact %s has no draft awaiting review: %w", contactID, modal.ErrInvalidState)
}

func editedBody() (string, error) {
	if decideFile != "" {
		b, err := os.ReadFile(decideFile)
		if err != nil {
			return "", fmt.Errorf("read body file: %w", err)
		}
		return string(b), nil
	}
	if strings.TrimSpace(decideBody) == "" {
		return "", errors.New("edit needs --body or --body-file")
	}
	return decideBody, nil
}
