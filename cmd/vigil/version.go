package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is stamped by the release build; source builds fall back to VCS info.
var version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the vigil version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved := version
			if resolved == "dev" {
				if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
					resolved = info.Main.Version
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vigil %s\n", resolved)
			return nil
		},
	}
}
