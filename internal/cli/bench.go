package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bench",
		Aliases: []string{"benchmark", "b"},
		Short:   "Measure generation and encoding throughput",
		Example: `  snowflake bench --duration 5s
  snowflake bench --node 42 --batch 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, _ := cmd.Flags().GetDuration("duration")
			batchSize, _ := cmd.Flags().GetInt("batch")
			if batchSize < 1 {
				return fmt.Errorf("--batch must be at least 1")
			}

			gen, err := a.openGenerator(cmd.Context())
			if err != nil {
				return err
			}
			defer gen.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running benchmarks (duration: %v, node: %d)\n\n", duration, gen.NodeID())

			fmt.Fprintf(out, "1. Single ID Generation:\n")
			count := 0
			start := time.Now()
			for deadline := start.Add(duration); time.Now().Before(deadline); count++ {
				if count%1024 == 0 {
					if err := gen.Err(); err != nil {
						return err
					}
				}
				if _, err := gen.NextID(); err != nil {
					return err
				}
			}
			report(cmd, count, time.Since(start))

			fmt.Fprintf(out, "2. Batch Generation (batch size: %d):\n", batchSize)
			count = 0
			start = time.Now()
			for deadline := start.Add(duration); time.Now().Before(deadline); {
				if err := gen.Err(); err != nil {
					return err
				}
				ids, err := gen.NextIDs(batchSize)
				if err != nil {
					return err
				}
				count += len(ids)
			}
			report(cmd, count, time.Since(start))

			fmt.Fprintf(out, "3. Encoding (1000 operations each):\n")
			id, err := gen.NextID()
			if err != nil {
				return err
			}
			for _, format := range []string{"decimal", "base62", "base58", "base32", "hex"} {
				start := time.Now()
				for i := 0; i < 1000; i++ {
					_ = id.Format(format)
				}
				fmt.Fprintf(out, "   %-8s %6.0f ns/op\n", format+":", float64(time.Since(start).Nanoseconds())/1000)
			}

			if err := gen.Err(); err != nil {
				return err
			}
			m := gen.GetMetrics()
			fmt.Fprintf(out, "\nGenerated %d IDs; sequence exhausted %d times, %v spent waiting\n",
				m.Generated, m.SequenceOverflow, time.Duration(m.WaitTimeUs)*time.Microsecond)
			return nil
		},
	}
	addGeneratorFlags(cmd)
	cmd.Flags().Duration("duration", 3*time.Second, "Duration of each generation benchmark")
	cmd.Flags().Int("batch", 100, "Batch size for the batch benchmark")
	return cmd
}

func report(cmd *cobra.Command, count int, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "   Generated:  %d IDs\n", count)
	fmt.Fprintf(out, "   Duration:   %v\n", elapsed)
	if count > 0 {
		fmt.Fprintf(out, "   Rate:       %.0f IDs/sec (%.0f ns/op)\n\n",
			float64(count)/elapsed.Seconds(), float64(elapsed.Nanoseconds())/float64(count))
	}
}
