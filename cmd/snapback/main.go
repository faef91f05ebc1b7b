package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "snapback",
		Short: "Content node replica set reconciliation",
		Long: `snapback keeps the secondaries of every user's replica set in step with the
primary. It runs the content node HTTP API, the sync queues and a reconciliation
orchestrator, and exposes an admin gRPC service.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a config file (yaml, json or toml)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))

	return cmd
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
