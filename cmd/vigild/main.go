// Command vigild runs the vigil monitoring daemon in the foreground. It is a
// thin wrapper over the same runtime loop the CLI launches with
// `vigil daemon run`, intended for service managers that supervise the
// process directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"vigil/internal/config"
	"vigil/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	diagnostic := flag.Bool("diagnostic", false, "enable diagnostic mode with separate DEBUG logs")
	flag.Parse()

	if err := run(*configPath, *logLevel, *diagnostic); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, diagnostic bool) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := strings.TrimSpace(logLevel)
	if level == "" {
		level = cfg.Logging.Level
	}

	return daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   level,
		Diagnostic: diagnostic,
	})
}
