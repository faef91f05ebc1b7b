package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"snapback/internal/node"
	"snapback/internal/replica"
)

// AdminOptions holds flags for the admin commands.
type AdminOptions struct {
	*RootOptions
	Addr    string
	Timeout time.Duration
}

// NewAdminCommand creates the admin command and its subcommands.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdminOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect and operate a running node over gRPC",
	}
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "127.0.0.1:4001", "admin gRPC address of the node")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newJobsCommand(opts))
	cmd.AddCommand(newEnqueueCommand(opts))
	cmd.AddCommand(newLockCommand(opts))
	cmd.AddCommand(newClearLocksCommand(opts))

	return cmd
}

func withClient(cmd *cobra.Command, opts *AdminOptions, fn func(ctx context.Context, c *node.AdminClient) (any, error)) error {
	client, err := node.NewAdminClient(opts.Addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()
	out, err := fn(ctx, client)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newJobsCommand(opts *AdminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List waiting and active sync jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *node.AdminClient) (any, error) {
				return c.SyncQueueJobs(ctx)
			})
		},
	}
}

func newEnqueueCommand(opts *AdminOptions) *cobra.Command {
	var (
		syncType string
		primary  string
	)
	cmd := &cobra.Command{
		Use:   "enqueue <wallet> <secondary>",
		Short: "Queue a sync of one wallet to one secondary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := replica.ParseSyncType(syncType)
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *node.AdminClient) (any, error) {
				return c.EnqueueSync(ctx, t, args[0], primary, args[1])
			})
		},
	}
	cmd.Flags().StringVar(&syncType, "type", string(replica.Manual), "MANUAL or RECURRING")
	cmd.Flags().StringVar(&primary, "primary", "", "primary endpoint, defaults to the node itself")
	return cmd
}

func newLockCommand(opts *AdminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <wallet>",
		Short: "Show the write lock of a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *node.AdminClient) (any, error) {
				ls, err := c.WriteLockStatus(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"wallet":         ls.Wallet,
					"held":           ls.Held,
					"holder":         ls.Holder,
					"ttl":            ls.TTL.String(),
					"syncInProgress": ls.Holder.IsSync(),
				}, nil
			})
		},
	}
}

func newClearLocksCommand(opts *AdminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-locks",
		Short: "Remove every wallet write lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *node.AdminClient) (any, error) {
				n, err := c.ClearWriteLocks(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"cleared": n}, nil
			})
		},
	}
}
