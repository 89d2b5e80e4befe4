package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is injected at build time via -ldflags.
var version = ""

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the cdrecon version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved := version
			if resolved == "" {
				if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
					resolved = info.Main.Version
				} else {
					resolved = "devel"
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cdrecon %s\n", resolved)
			return nil
		},
	}
}
