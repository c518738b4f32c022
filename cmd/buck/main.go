// Package main is the entry point for buck.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "buck.yaml"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "buck",
		Short: "Run commands with per-invocation console and log routing",
		Long: `buck runs commands on a shared worker pool. Every invocation gets its own
console destination and log file under the log root, and workers are rebound
to whichever invocation they are serving.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path, YAML or TOML (default: ./"+defaultConfigFile+" or ~/.config/buck/"+defaultConfigFile+")")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}
