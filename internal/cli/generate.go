package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/ledger"
)

func (a *app) newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen", "g"},
		Short:   "Generate IDs",
		Example: `  snowflake generate --node 42
  snowflake generate --count 1000 --format base62 --node 42 --batch
  snowflake generate --json --node-source random
  snowflake generate --count 10 --node 3 --ledger ids.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			format, _ := cmd.Flags().GetString("format")
			asJSON, _ := cmd.Flags().GetBool("json")
			batch, _ := cmd.Flags().GetBool("batch")
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			gen, err := a.openGenerator(cmd.Context())
			if err != nil {
				return err
			}
			defer gen.Close()

			start := time.Now()
			var ids []snowflake.ID
			if batch {
				ids, err = gen.NextIDs(count)
			} else {
				ids = make([]snowflake.ID, 0, count)
				for i := 0; i < count; i++ {
					if err = gen.Err(); err != nil {
						break
					}
					var id snowflake.ID
					if id, err = gen.NextID(); err != nil {
						break
					}
					ids = append(ids, id)
				}
			}
			if err == nil {
				err = gen.Err()
			}
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			elapsed := time.Since(start)

			if a.cfg.LedgerPath != "" {
				if err := recordIDs(cmd, a.cfg.LedgerPath, gen.Epoch(), ids); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeGenerateJSON(out, gen.Generator, ids, elapsed)
			}
			for _, id := range ids {
				fmt.Fprintln(out, id.Format(format))
			}
			if count > 100 {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nGenerated %d IDs in %v (%.0f IDs/sec)\n",
					count, elapsed, float64(count)/elapsed.Seconds())
			}
			return nil
		},
	}
	addGeneratorFlags(cmd)
	cmd.Flags().Int("count", 1, "Number of IDs to generate")
	cmd.Flags().String("format", "decimal", "Output format: decimal|base32|base58|base62|hex|binary")
	cmd.Flags().Bool("json", false, "Output as JSON with decoded fields")
	cmd.Flags().Bool("batch", false, "Generate under a single lock acquisition")
	cmd.Flags().String("ledger", "", "Record the generated IDs in this SQLite ledger")
	return cmd
}

func recordIDs(cmd *cobra.Command, path string, epoch int64, ids []snowflake.ID) error {
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()
	if err := l.Record(cmd.Context(), epoch, ids...); err != nil {
		return err
	}
	return nil
}

type idInfo struct {
	ID        snowflake.ID `json:"id"`
	Base62    string       `json:"base62"`
	Hex       string       `json:"hex"`
	Timestamp time.Time    `json:"timestamp"`
	NodeID    int64        `json:"node_id"`
	Sequence  int64        `json:"sequence"`
}

func newIDInfo(id snowflake.ID, epoch int64) idInfo {
	parts := snowflake.Decompose(id, epoch)
	return idInfo{
		ID:        id,
		Base62:    id.Base62(),
		Hex:       id.Hex(),
		Timestamp: parts.Time(),
		NodeID:    parts.NodeID,
		Sequence:  parts.Sequence,
	}
}

func writeGenerateJSON(w io.Writer, gen *snowflake.Generator, ids []snowflake.ID, elapsed time.Duration) error {
	type output struct {
		Count      int      `json:"count"`
		NodeID     int64    `json:"node_id"`
		Epoch      int64    `json:"epoch"`
		Duration   string   `json:"duration"`
		RatePerSec float64  `json:"rate_per_sec"`
		IDs        []idInfo `json:"ids"`
	}

	infos := make([]idInfo, len(ids))
	for i, id := range ids {
		infos[i] = newIDInfo(id, gen.Epoch())
	}
	var rate float64
	if elapsed > 0 {
		rate = float64(len(ids)) / elapsed.Seconds()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Count:      len(ids),
		NodeID:     gen.NodeID(),
		Epoch:      gen.Epoch(),
		Duration:   elapsed.String(),
		RatePerSec: rate,
		IDs:        infos,
	})
}
