package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/ledger"
)

func (a *app) newLedgerCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Inspect a SQLite ledger of issued IDs"}
	cmd.AddCommand(a.newLedgerQueryCommand(), a.newLedgerCountCommand())
	return cmd
}

func (a *app) newLedgerQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List recorded IDs minted in a time range",
		Long: `List recorded IDs minted between --from and --to (RFC 3339, default the
last hour). With --node only that node's IDs are listed; --node alone prints
the node's most recent ID.`,
		Example: `  snowflake ledger query --ledger ids.db
  snowflake ledger query --ledger ids.db --from 2025-06-01T00:00:00Z --to 2025-06-02T00:00:00Z
  snowflake ledger query --ledger ids.db --node 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LedgerPath == "" {
				return fmt.Errorf("--ledger is required")
			}
			node, _ := cmd.Flags().GetInt64("node")
			now := time.Now()
			from, err := timeFlag(cmd, "from", now.Add(-time.Hour))
			if err != nil {
				return err
			}
			to, err := timeFlag(cmd, "to", now)
			if err != nil {
				return err
			}

			l, err := ledger.Open(a.cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer l.Close()

			var entries []ledger.Entry
			if node >= 0 && !cmd.Flags().Changed("from") && !cmd.Flags().Changed("to") {
				e, err := l.Latest(cmd.Context(), node)
				if err != nil {
					return err
				}
				entries = []ledger.Entry{e}
			} else if node >= 0 {
				if entries, err = l.RangeNode(cmd.Context(), node, from, to, a.cfg.Epoch); err != nil {
					return err
				}
			} else {
				if entries, err = l.Range(cmd.Context(), from, to, a.cfg.Epoch); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNODE\tSEQUENCE\tMINTED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.ID, e.NodeID, e.Sequence, e.Timestamp.Format(time.RFC3339Nano))
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("ledger", "", "Path to the SQLite ledger")
	cmd.Flags().String("from", "", "Start of the range (RFC 3339)")
	cmd.Flags().String("to", "", "End of the range (RFC 3339)")
	cmd.Flags().Int64("node", -1, "Only this node id")
	cmd.Flags().Int64("epoch", snowflake.DefaultEpoch, "Epoch in Unix milliseconds the IDs were generated with")
	return cmd
}

func (a *app) newLedgerCountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of recorded IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LedgerPath == "" {
				return fmt.Errorf("--ledger is required")
			}
			l, err := ledger.Open(a.cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer l.Close()
			n, err := l.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().String("ledger", "", "Path to the SQLite ledger")
	return cmd
}

func timeFlag(cmd *cobra.Command, name string, def time.Time) (time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return def, nil
	}
	v, _ := cmd.Flags().GetString(name)
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
