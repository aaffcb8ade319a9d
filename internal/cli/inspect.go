package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/internal/config"
)

func (a *app) newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parse <id>",
		Aliases: []string{"p"},
		Short:   "Decode an ID into timestamp, node id and sequence",
		Long: `Decode an ID given in decimal, base62, base58, hex or base32 (tried in
that order). The timestamp is only meaningful with the epoch the ID was
generated with.`,
		Example: `  snowflake parse 7298012345678901248
  snowflake parse --epoch 1288834974657 1541815603606036480`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseAny(args[0])
			if err != nil {
				return err
			}
			parts := snowflake.Decompose(id, a.cfg.Epoch)

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(newIDInfo(id, a.cfg.Epoch))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Snowflake ID: %s\n\n", id)
			fmt.Fprintf(out, "Components:\n")
			fmt.Fprintf(out, "  Timestamp:  %s (%d)\n", parts.Time().Format(time.RFC3339Nano), parts.Timestamp)
			fmt.Fprintf(out, "  Node ID:    %d\n", parts.NodeID)
			fmt.Fprintf(out, "  Sequence:   %d\n", parts.Sequence)
			fmt.Fprintf(out, "\nEncodings:\n")
			fmt.Fprintf(out, "  Decimal:    %s\n", id.String())
			fmt.Fprintf(out, "  Base62:     %s\n", id.Base62())
			fmt.Fprintf(out, "  Base58:     %s\n", id.Base58())
			fmt.Fprintf(out, "  Base32:     %s\n", id.Base32())
			fmt.Fprintf(out, "  Hex:        %s\n", id.Hex())
			return nil
		},
	}
	cmd.Flags().Int64("epoch", snowflake.DefaultEpoch, "Epoch in Unix milliseconds the ID was generated with")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

func (a *app) newEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "encode <id> <format>",
		Aliases: []string{"enc", "e"},
		Short:   "Convert an ID to another encoding",
		Long: `Convert an ID to another encoding. Formats: decimal, base62 (b62),
base58 (b58), base32 (b32), hex (x), binary (bin).`,
		Example: `  snowflake encode 7298012345678901248 base62
  snowflake encode 8hWk3q9Rz2 decimal`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseAny(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Format(args[1]))
			return nil
		},
	}
}

func (a *app) newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the bit layout capacity for an epoch",
		Long: `Show the bit layout capacity for an epoch. With --node, also show the
settings of a generator for that node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, snowflake.Capacity(a.cfg.Epoch))
			if a.cfg.NodeID >= 0 {
				gen, err := snowflake.NewWithEpoch(a.cfg.NodeID, a.cfg.Epoch)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, gen)
			}
			return nil
		},
	}
	cmd.Flags().Int64("node", -1, "Node id 0-1023")
	cmd.Flags().Int64("epoch", snowflake.DefaultEpoch, "Epoch in Unix milliseconds")
	return cmd
}

func (a *app) newNodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Print the node id a source would derive on this host",
		Example: `  snowflake node
  snowflake node --node-source random
  snowflake node --name "$HOSTNAME"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			name, _ := cmd.Flags().GetString("name")
			switch {
			case cmd.Flags().Changed("name"):
				id = snowflake.NodeIDFromName(name)
			case a.cfg.NodeSource == config.SourceRandom:
				id = snowflake.RandomNodeID()
			case a.cfg.NodeSource == "hostname":
				host, err := os.Hostname()
				if err != nil {
					return err
				}
				id = snowflake.NodeIDFromName(host)
			case a.cfg.NodeSource == config.SourceHardware:
				id = snowflake.HardwareNodeID()
			default:
				return fmt.Errorf("node-source %q cannot be previewed; use hardware|random|hostname or --name", a.cfg.NodeSource)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().String("node-source", config.SourceHardware, "Source: hardware|random|hostname")
	cmd.Flags().String("name", "", "Derive from this name (numeric suffix, else hashed)")
	return cmd
}
