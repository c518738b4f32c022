package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michsien/buck/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, git commit, and build date.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "buck %s\n", version.String())
		},
	}
}
