// Package cli implements the snowflake command-line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/internal/config"
	"github.com/crispinlab/snowflake/internal/logging"
	"github.com/crispinlab/snowflake/redislease"
)

// Version is reported by --version.
var Version = "1.0.0"

// app carries the configuration resolved for one invocation.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	dial   func(addr string) redisConn
}

// NewRoot constructs the root command with every subcommand registered.
func NewRoot() *cobra.Command {
	return newRoot(dialRedis)
}

func newRoot(dial func(addr string) redisConn) *cobra.Command {
	a := &app{cfg: config.Default(), logger: logging.Discard(), dial: dial}

	root := &cobra.Command{
		Use:   "snowflake",
		Short: "Generate and inspect 64-bit snowflake IDs",
		Long: `snowflake generates roughly time-ordered 64-bit IDs (41-bit time offset,
10-bit node id, 12-bit sequence) and decodes, re-encodes and audits them.

Settings come from --config (JSON), then SNOWFLAKE_* environment variables,
then flags.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("snowflake CLI version {{.Version}}\n")
	root.PersistentFlags().String("config", os.Getenv("SNOWFLAKE_CONFIG"), "Path to a JSON config file")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "", "Log format: text|json")

	root.AddCommand(
		a.newGenerateCommand(),
		a.newParseCommand(),
		a.newEncodeCommand(),
		a.newInfoCommand(),
		a.newNodeCommand(),
		a.newLedgerCommand(),
		a.newLeaseCommand(),
		a.newBenchCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.FromEnv(&cfg)

	f := cmd.Flags()
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.LogFormat, _ = f.GetString("log-format")
	}
	if f.Changed("node") {
		cfg.NodeID, _ = f.GetInt64("node")
	}
	if f.Changed("epoch") {
		cfg.Epoch, _ = f.GetInt64("epoch")
	}
	if f.Changed("node-source") {
		cfg.NodeSource, _ = f.GetString("node-source")
	}
	if f.Changed("redis") {
		cfg.RedisAddr, _ = f.GetString("redis")
	}
	if f.Changed("ledger") {
		cfg.LedgerPath, _ = f.GetString("ledger")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// addGeneratorFlags registers the flags that select a node id and epoch.
func addGeneratorFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("node", -1, "Node id 0-1023 (-1 derives one from --node-source)")
	cmd.Flags().Int64("epoch", snowflake.DefaultEpoch, "Epoch in Unix milliseconds")
	cmd.Flags().String("node-source", config.SourceHardware, "Node id source when --node is not set: hardware|random|redis")
	cmd.Flags().String("redis", "", "Redis address for --node-source redis")
}

// generatorHandle is a generator plus whatever backs its node id.
type generatorHandle struct {
	*snowflake.Generator
	ctx     context.Context
	release func()
}

// Err returns a non-nil error once the generator must stop, such as when its
// leased node id was lost.
func (h *generatorHandle) Err() error {
	if h.ctx.Err() == nil {
		return nil
	}
	return context.Cause(h.ctx)
}

// Close gives back a leased node id.
func (h *generatorHandle) Close() { h.release() }

// openGenerator builds a generator from the resolved config. A node id leased
// from Redis is renewed in the background until Close; if the lease is lost,
// Err reports redislease.ErrLeaseLost and no more IDs may be handed out.
func (a *app) openGenerator(ctx context.Context) (*generatorHandle, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	cfg := snowflake.DefaultConfig(a.cfg.NodeID)
	cfg.Epoch = a.cfg.Epoch
	cfg.Logger = a.logger

	ctx, cancel := context.WithCancelCause(ctx)
	h := &generatorHandle{ctx: ctx, release: func() { cancel(nil) }}

	if a.cfg.NodeID < 0 {
		cfg.DeriveNodeID = true
		switch a.cfg.NodeSource {
		case config.SourceRandom:
			cfg.NodeIDSource = snowflake.RandomNodeID
		case config.SourceRedis:
			lease, closeClient, err := a.acquireLease(ctx)
			if err != nil {
				cancel(nil)
				return nil, err
			}
			stopped := make(chan struct{})
			go func() {
				defer close(stopped)
				if err := lease.Run(ctx); err != nil {
					cancel(err)
				}
			}()
			cfg.NodeIDSource = lease.Source()
			h.release = func() {
				cancel(nil)
				<-stopped
				closeClient()
			}
		default:
			cfg.NodeIDSource = snowflake.HardwareNodeID
		}
	}

	gen, err := snowflake.NewWithConfig(cfg)
	if err != nil {
		h.release()
		return nil, err
	}
	h.Generator = gen
	return h, nil
}

// redisConn is a lease client that can be closed. *redis.Client satisfies it.
type redisConn interface {
	redislease.Client
	Close() error
}

func dialRedis(addr string) redisConn {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// acquireLease leases a node id from the configured Redis. Run releases the
// lease when its context ends; closeClient closes the connection afterwards.
func (a *app) acquireLease(ctx context.Context) (*redislease.Lease, func(), error) {
	client := a.dial(a.cfg.RedisAddr)
	lease := redislease.New(client, redislease.Options{
		TTL:    time.Duration(a.cfg.LeaseTTL),
		Logger: a.logger,
	})
	if _, err := lease.Acquire(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("lease node id from %s: %w", a.cfg.RedisAddr, err)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("close redis client", "error", err)
		}
	}
	return lease, closeClient, nil
}
