package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/ipc"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var ackID string

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show recent alerts or acknowledge one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if id := strings.TrimSpace(ackID); id != "" {
					resp, err := client.Acknowledge(id)
					if err != nil {
						return err
					}
					if resp.Acknowledged {
						fmt.Fprintf(cmd.OutOrStdout(), "Alert %s acknowledged\n", id)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Alert %s not found\n", id)
					}
					return nil
				}

				resp, err := client.RecentAlerts(limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp.Alerts)
				}
				if len(resp.Alerts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No alerts recorded")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Severity", "Concern", "Source", "Message", "Created", "Ack"},
					buildAlertRows(resp.Alerts),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of alerts to show (0 for all retained)")
	cmd.Flags().StringVar(&ackID, "ack", "", "Acknowledge the alert with this id")
	return cmd
}
