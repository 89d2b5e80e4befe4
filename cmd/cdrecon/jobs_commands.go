package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cdrecon/internal/jobs"
	"cdrecon/internal/report"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage queued reconciliation jobs",
	}

	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsResetCommand(ctx))

	return jobsCmd
}

func (c *commandContext) withStore(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, status := range []jobs.Status{
					jobs.StatusPending,
					jobs.StatusNormalizing,
					jobs.StatusMatching,
					jobs.StatusReporting,
					jobs.StatusCompleted,
					jobs.StatusFailed,
				} {
					if count, ok := stats[string(status)]; ok {
						rows = append(rows, []string{string(status), strconv.Itoa(count)})
					}
				}
				out := renderTable([]string{"Status", "Count"}, rows, 1)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reconciliation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				var statuses []jobs.Status
				for _, statusStr := range listStatuses {
					status := jobs.Status(statusStr)
					if !status.Valid() {
						return fmt.Errorf("unknown status %q", statusStr)
					}
					statuses = append(statuses, status)
				}

				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, job := range list {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Token,
						string(job.Status),
						job.CreatedAt.Local().Format(time.RFC3339),
					})
				}
				out := renderTable([]string{"ID", "Token", "Status", "Created"}, rows, 0)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|token>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				var (
					job *jobs.Job
					err error
				)
				if id, parseErr := strconv.ParseInt(args[0], 10, 64); parseErr == nil {
					job, err = store.GetByID(cmd.Context(), id)
				} else {
					job, err = store.GetByToken(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %d\n", job.ID)
				fmt.Fprintf(out, "Token:    %s\n", job.Token)
				fmt.Fprintf(out, "Status:   %s\n", job.Status)
				fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Updated:  %s\n", job.UpdatedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Carrier A: %s\n", job.CarrierAPath)
				fmt.Fprintf(out, "Carrier B: %s\n", job.CarrierBPath)
				fmt.Fprintf(out, "Tolerances: time %ds, duration %ds, group ceiling %d\n",
					job.TimeTolerance, job.DurationTolerance, job.GroupCeiling)
				if job.ReconDate != "" {
					fmt.Fprintf(out, "Date:     %s\n", job.ReconDate)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", job.ErrorMessage)
				}
				if job.ReportDir != "" {
					fmt.Fprintf(out, "Reports:  %s\n", job.ReportDir)
				}
				if job.SummaryJSON != "" {
					var summary report.Summary
					if err := json.Unmarshal([]byte(job.SummaryJSON), &summary); err == nil {
						fmt.Fprintf(out, "Matched:  %d (%.2f%%)\n", summary.Matched, summary.MatchRate*100)
						fmt.Fprintf(out, "Unmatched: %d / %d\n", summary.UnmatchedA, summary.UnmatchedB)
					}
				}
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				removed, err := store.Clear(cmd.Context(), !clearAll)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove pending and in-flight jobs too")
	return cmd
}

func newJobsResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight jobs to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				updated, err := store.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d jobs\n", updated)
				return nil
			})
		},
	}
}
