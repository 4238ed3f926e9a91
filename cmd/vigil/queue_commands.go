package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the analysis queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts by status and pending backlog by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				counts, byPriority, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"counts":            counts,
						"pendingByPriority": byPriority,
					})
				}
				out := cmd.OutOrStdout()
				rows := buildQueueStatusRows(counts)
				if len(rows) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintln(out)
				if priorityRows := buildPriorityRows(byPriority); len(priorityRows) > 0 {
					fmt.Fprintln(out, "Pending by priority:")
					fmt.Fprint(out, renderTable([]string{"Priority", "Count"}, priorityRows, []columnAlignment{alignLeft, alignRight}))
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				jobs, err := q.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Stream", "Scenario", "Kind", "Priority", "Status", "Created"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one analysis job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withQueue(func(q queueAPI) error {
				job, err := q.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d\n", job.ID)
				fmt.Fprintf(out, "  Stream:      %s\n", job.StreamID)
				fmt.Fprintf(out, "  Scenario:    %s\n", formatLabel(job.Scenario))
				fmt.Fprintf(out, "  Kind:        %s\n", formatLabel(job.Kind))
				fmt.Fprintf(out, "  Trigger:     %s (magnitude %.3f)\n", formatLabel(job.Trigger), job.Magnitude)
				fmt.Fprintf(out, "  Priority:    %s\n", formatLabel(job.Priority))
				fmt.Fprintf(out, "  Status:      %s\n", formatLabel(job.Status))
				fmt.Fprintf(out, "  Attempts:    %d/%d\n", job.Attempts, job.MaxAttempts)
				if job.FramePath != "" {
					fmt.Fprintf(out, "  Frame:       %s\n", job.FramePath)
				}
				if job.Audio != nil {
					fmt.Fprintf(out, "  Audio:       %d samples @ %d Hz (rms %.4f)\n",
						job.Audio.Samples, job.Audio.SampleRate, job.Audio.RMS)
				}
				if job.CreatedAt != "" {
					fmt.Fprintf(out, "  Created:     %s\n", formatDisplayTime(job.CreatedAt))
				}
				if job.StartedAt != "" {
					fmt.Fprintf(out, "  Started:     %s\n", formatDisplayTime(job.StartedAt))
				}
				if job.CompletedAt != "" {
					fmt.Fprintf(out, "  Completed:   %s\n", formatDisplayTime(job.CompletedAt))
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:       %s\n", job.ErrorMessage)
				}
				if len(job.Result) > 0 {
					fmt.Fprintf(out, "  Result:      %s\n", strings.TrimSpace(string(job.Result)))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			var statuses []string
			switch {
			case clearCompleted:
				statuses = []string{string(queue.StatusCompleted)}
			case clearFailed:
				statuses = []string{string(queue.StatusFailed)}
			}
			return ctx.withQueue(func(q queueAPI) error {
				removed, err := q.Clear(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				switch {
				case clearCompleted:
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed jobs\n", removed)
				case clearFailed:
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed jobs\n", removed)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed analysis jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid job id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withQueue(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := q.Retry(cmd.Context(), nil)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}

				for _, id := range ids {
					job, err := q.Describe(cmd.Context(), id)
					if err != nil {
						return err
					}
					if job == nil {
						fmt.Fprintf(out, "Job %d not found\n", id)
						continue
					}
					if !strings.EqualFold(strings.TrimSpace(job.Status), string(queue.StatusFailed)) {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
						continue
					}
					updated, err := q.Retry(cmd.Context(), []int64{id})
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Job %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend: %s\n", health.Backend)
				fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", health.SchemaVersion)
				fmt.Fprintf(out, "analysis_jobs table present: %s\n", yesNo(health.TableExists))
				if len(health.ColumnsPresent) > 0 {
					cols := append([]string(nil), health.ColumnsPresent...)
					sort.Strings(cols)
					fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
				}
				if len(health.MissingColumns) > 0 {
					missing := append([]string(nil), health.MissingColumns...)
					sort.Strings(missing)
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", health.TotalJobs)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}
