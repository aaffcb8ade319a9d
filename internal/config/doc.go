// Package config provides loading and environment overlay for the snowflake
// binaries. It exposes a Default() baseline that Load reads a JSON file over,
// and FromEnv applies SNOWFLAKE_* variables on top.
//
// Example:
//
//	cfg, err := config.Load("/etc/snowflake.json")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
