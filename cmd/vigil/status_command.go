package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range statusResp.SystemChecks {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.ChecksSummary != nil {
				fmt.Fprintln(stdout, renderStatusLine("Summary", statusKindFromSeverity(statusResp.ChecksSummary.Severity), statusResp.ChecksSummary.Detail, colorize))
			}
			for _, check := range statusResp.Checks {
				kind := statusOK
				if !check.Passed {
					kind = statusWarn
				}
				fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			if len(statusResp.HandlerHealth) > 0 {
				for _, line := range renderSectionHeader("Analysis Handlers", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, health := range statusResp.HandlerHealth {
					kind := statusOK
					detail := health.Detail
					if detail == "" {
						detail = "Ready"
					}
					if !health.Ready {
						kind = statusWarn
					}
					fmt.Fprintln(stdout, renderStatusLine(formatLabel(health.Name), kind, detail, colorize))
				}
				fmt.Fprintln(stdout)
			}

			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if statusResp.Running {
				fmt.Fprintln(stdout, renderStatusLine("In Flight", statusInfo, fmt.Sprintf("%d", statusResp.InFlight), colorize))
			}
			if statusResp.LastError != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last Error", statusWarn, statusResp.LastError, colorize))
			}

			rows := buildQueueStatusRows(statusResp.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintln(stdout)

			if priorityRows := buildPriorityRows(statusResp.PendingByPriority); len(priorityRows) > 0 {
				fmt.Fprintln(stdout, "Pending by priority:")
				fmt.Fprint(stdout, renderTable([]string{"Priority", "Count"}, priorityRows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintln(stdout)
			}
			return nil
		},
	}
}
