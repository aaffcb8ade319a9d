package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crispinlab/snowflake/redislease"
)

func (a *app) newLeaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lease",
		Short: "Lease a node id from Redis and hold it until interrupted",
		Long: `Lease the lowest free node id from Redis, print it, and keep renewing it
until SIGINT or SIGTERM, then release it. With --list, print the node ids
currently claimed and exit.`,
		Example: `  snowflake lease --redis localhost:6379
  snowflake lease --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			list, _ := cmd.Flags().GetBool("list")
			out := cmd.OutOrStdout()

			client := a.dial(a.cfg.RedisAddr)
			defer client.Close()

			if list {
				ids, err := redislease.ActiveNodes(cmd.Context(), client, prefix)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			lease := redislease.New(client, redislease.Options{
				Prefix: prefix,
				TTL:    time.Duration(a.cfg.LeaseTTL),
				Logger: a.logger,
			})
			id, err := lease.Acquire(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, id)

			if err := lease.Run(ctx); err != nil && !errors.Is(err, redislease.ErrNotAcquired) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("redis", "", "Redis address (default from config, localhost:6379)")
	cmd.Flags().String("prefix", redislease.DefaultPrefix, "Key prefix of the node id leases")
	cmd.Flags().Bool("list", false, "List claimed node ids and exit")
	return cmd
}
