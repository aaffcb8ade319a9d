package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays SNOWFLAKE_* environment variables onto cfg. Unparseable
// values are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("SNOWFLAKE_NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.NodeID = n
		}
	}
	if v := os.Getenv("SNOWFLAKE_EPOCH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Epoch = n
		}
	}
	if v := os.Getenv("SNOWFLAKE_NODE_SOURCE"); v != "" {
		cfg.NodeSource = v
	}
	if v := os.Getenv("SNOWFLAKE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("SNOWFLAKE_LEASE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LeaseTTL = Duration(d)
		}
	}
	if v := os.Getenv("SNOWFLAKE_LEDGER"); v != "" {
		cfg.LedgerPath = v
	}
	if v := os.Getenv("SNOWFLAKE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SNOWFLAKE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
