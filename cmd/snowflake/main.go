// Command snowflake generates, decodes and audits snowflake IDs.
//
// Usage:
//
//	snowflake generate [flags]       Generate IDs
//	snowflake parse <id>             Decode an ID
//	snowflake encode <id> <format>   Convert an ID to another encoding
//	snowflake info                   Show layout capacity for an epoch
//	snowflake node                   Preview a derived node id
//	snowflake ledger query           List IDs recorded in a SQLite ledger
//	snowflake lease                  Hold a node id leased from Redis
//	snowflake bench                  Measure throughput
package main

import (
	"os"

	"github.com/crispinlab/snowflake/internal/cli"
)

func main() {
	if err := cli.NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
