package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"snapback/internal/config"
	"snapback/internal/logging"
	"snapback/internal/node"
)

// runFlags maps run flags to config keys.
var runFlags = map[string]string{
	"endpoint":     "snapback.creator-node-endpoint",
	"discovery":    "snapback.discovery-endpoints",
	"http-listen":  "snapback.http-listen",
	"grpc-listen":  "snapback.grpc-listen",
	"orchestrator": "snapback.orchestrator",
	"db":           "storage.path",
	"dev":          "state-machine.dev-mode",
	"log-level":    "logging.level",
	"log-encoder":  "logging.encoder",
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a content node",
		Long: `Start a content node.

Settings come from the config file, SNAPBACK_* environment variables and flags,
flags taking precedence.

Example:
  snapback run --endpoint http://cn1.local:4000 --discovery http://dn1.local:5000
  SNAPBACK_SNAPBACK_ORCHESTRATOR=state-monitoring snapback run -c node.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNode(cmd.Context(), rootOpts, v)
		},
	}

	flags := cmd.Flags()
	flags.String("endpoint", "", "public endpoint of this node")
	flags.String("discovery", "", "comma-separated discovery node endpoints")
	flags.String("http-listen", "", "HTTP listen address")
	flags.String("grpc-listen", "", "admin gRPC listen address")
	flags.String("orchestrator", "", "state-machine or state-monitoring")
	flags.String("db", "", "sqlite database path, empty for in-process maps")
	flags.Bool("dev", false, "use the short development tick delay")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-encoder", "", "console or json")
	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range runFlags {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func runNode(ctx context.Context, opts *RootOptions, v *viper.Viper) error {
	cfg, err := config.Load(opts.ConfigPath, v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.New(*cfg, node.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	logger.Info("starting node",
		zap.String("endpoint", cfg.Snapback.Endpoint),
		zap.String("orchestrator", cfg.Snapback.Orchestrator),
		zap.Strings("discovery", cfg.Snapback.DiscoveryEndpoints),
	)
	return n.Run(ctx)
}
