package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/daemonctl"
	"vigil/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the vigil daemon process",
	}

	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonRestartCommand(ctx))

	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	var logLevel string

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the vigil daemon in the foreground",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			level := strings.TrimSpace(logLevel)
			if level == "" {
				level = cfg.Logging.Level
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   level,
				Diagnostic: diagnostic,
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var startDiagnostic bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vigil daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Message) != "" {
					fmt.Fprintln(stdout, result.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	return cmd
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the vigil daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping scheduler...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonRestartCommand(ctx *commandContext) *cobra.Command {
	var restartDiagnostic bool
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the vigil daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartDiagnostic),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			switch result.Start.State {
			case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon restarted")
			case daemonctl.StartStateRequested:
				if strings.TrimSpace(result.Start.Message) != "" {
					fmt.Fprintln(stdout, result.Start.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Start request sent")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&restartDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	return cmd
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{Diagnostic: diagnostic}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
